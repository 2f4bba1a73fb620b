// Package log provides the structured logger shared by the commands and the
// controller.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Debug  bool      // debug level instead of warn
	Level  string    // optional explicit level ("debug", "info", etc.), wins over Debug
	Output io.Writer // optional writer (defaults to os.Stderr)
	JSON   bool      // raw JSON lines instead of the console writer
}

var (
	mu   sync.RWMutex
	base = New(Config{})
)

// New builds a logger from cfg without touching the global one.
func New(cfg Config) zerolog.Logger {
	level := zerolog.WarnLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	} else if env := os.Getenv("PLAYCTL_LOG_LEVEL"); env != "" && !cfg.Debug {
		if parsed, err := zerolog.ParseLevel(env); err == nil {
			level = parsed
		}
	}

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}
	if !cfg.JSON {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.TimeOnly, NoColor: !isTerminal(writer)}
	}

	return zerolog.New(writer).Level(level).With().
		Timestamp().
		Logger()
}

// Configure replaces the global logger. Commands call it once flags and
// config are known.
func Configure(cfg Config) {
	l := New(cfg)
	mu.Lock()
	base = l
	mu.Unlock()
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
