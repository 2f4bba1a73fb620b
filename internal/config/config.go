// Package config handles TOML-based configuration loading and validation.
// TOML is parsed as data only; nothing in the file is executed.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"playctl/internal/decode"
)

// Config holds all application configuration.
type Config struct {
	Player           string            `toml:"player"`
	FFprobe          string            `toml:"ffprobe"`
	ForceAudioDecode bool              `toml:"force_audio_decode"`
	ForceVideoDecode bool              `toml:"force_video_decode"`
	PreferTCP        bool              `toml:"prefer_tcp"`
	SocketTimeout    string            `toml:"socket_timeout"`
	StartDir         string            `toml:"start_dir"`
	FileFilters      []string          `toml:"file_filters"`
	History          bool              `toml:"history"`
	Debug            bool              `toml:"debug"`
	LogLevel         string            `toml:"log_level"`
	LogFormat        string            `toml:"log_format"`
	ProtocolOptions  map[string]string `toml:"protocol_options"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Player:      "mpv",
		FFprobe:     "ffprobe",
		StartDir:    "~/Videos",
		FileFilters: []string{"*"},
		History:     true,
		Debug:       false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "playctl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "playctl"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

var optionKey = regexp.MustCompile(`^[a-z0-9_]+$`)

var (
	logLevels  = map[string]bool{"": true, "trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	logFormats = map[string]bool{"": true, "console": true, "json": true}
)

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validPlayers := map[string]bool{
		"mpv": true, "vlc": true, "iina": true, "celluloid": true,
	}
	if !validPlayers[strings.ToLower(c.Player)] {
		return fmt.Errorf("unsupported player %q (valid: mpv, vlc, iina, celluloid)", c.Player)
	}

	if strings.TrimSpace(c.FFprobe) == "" {
		return fmt.Errorf("ffprobe path cannot be empty")
	}

	if _, err := c.Timeout(); err != nil {
		return err
	}

	if !logLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q (valid: trace, debug, info, warn, error, disabled)", c.LogLevel)
	}
	if !logFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("invalid log_format %q (valid: console, json)", c.LogFormat)
	}

	for k := range c.ProtocolOptions {
		if !optionKey.MatchString(k) {
			return fmt.Errorf("invalid protocol option name %q (lowercase letters, digits and _ only)", k)
		}
		if k == "user_agent" {
			return fmt.Errorf("protocol option user_agent cannot be overridden")
		}
	}

	return nil
}

// Timeout parses SocketTimeout. An empty value means no timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if strings.TrimSpace(c.SocketTimeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SocketTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid socket_timeout %q: %w", c.SocketTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("socket_timeout %q cannot be negative", c.SocketTimeout)
	}
	return d, nil
}

// Builder returns the transport policy for URI opens.
func (c *Config) Builder() decode.Builder {
	// Validate has already rejected bad timeouts.
	timeout, _ := c.Timeout()
	return decode.Builder{
		PreferTCP:     c.PreferTCP,
		SocketTimeout: timeout,
	}
}

// Toggles returns the per-open decode switches.
func (c *Config) Toggles() decode.Toggles {
	return decode.Toggles{
		ForceAudio: c.ForceAudioDecode,
		ForceVideo: c.ForceVideoDecode,
		Protocol:   c.ProtocolOptions,
	}
}

// ExpandStartDir resolves ~ in the file picker's start directory.
func (c *Config) ExpandStartDir() (string, error) {
	dir := c.StartDir
	if dir == "" {
		dir = "."
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir[1:], "/"))
	}
	return filepath.Abs(dir)
}

// HistoryPath returns the path to the recent sources file.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "playctl", "history.tsv"), nil
}
