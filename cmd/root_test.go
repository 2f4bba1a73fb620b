package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"playctl/internal/config"
	plog "playctl/internal/log"
)

func TestLogConfig(t *testing.T) {
	tests := []struct {
		name  string
		level string
		fmt   string
		debug bool
		want  plog.Config
	}{
		{"defaults", "", "", false, plog.Config{}},
		{"level and json", "Info", "JSON", false, plog.Config{Level: "info", JSON: true}},
		{"debug wins over level", "error", "console", true, plog.Config{Debug: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			c.LogLevel, c.LogFormat, c.Debug = tt.level, tt.fmt, tt.debug
			assert.Equal(t, tt.want, logConfig(c))
		})
	}
}
