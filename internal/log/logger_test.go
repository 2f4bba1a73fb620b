package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	t.Setenv("PLAYCTL_LOG_LEVEL", "")

	tests := []struct {
		name string
		cfg  Config
		want zerolog.Level
	}{
		{"default", Config{}, zerolog.WarnLevel},
		{"debug flag", Config{Debug: true}, zerolog.DebugLevel},
		{"explicit level", Config{Debug: true, Level: "error"}, zerolog.ErrorLevel},
		{"bad level keeps default", Config{Level: "loud"}, zerolog.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.cfg)
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestNewEnvLevel(t *testing.T) {
	t.Setenv("PLAYCTL_LOG_LEVEL", "info")
	assert.Equal(t, zerolog.InfoLevel, New(Config{}).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, New(Config{Debug: true}).GetLevel())
}

func TestWithComponentJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Debug: true, Output: &buf, JSON: true})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("controller")
	l.Debug().Str("uri", "rtsp://cam").Msg("opening")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "controller", entry["component"])
	assert.Equal(t, "opening", entry["message"])
	assert.Equal(t, "debug", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf})

	l.Debug().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.Contains(t, out, "shown")
}
