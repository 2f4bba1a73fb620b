// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"playctl/internal/config"
	plog "playctl/internal/log"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagPlayer     string
	flagForceAudio bool
	flagForceVideo bool
	flagPreferTCP  bool
	flagNoHistory  bool
	flagDebug      bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "playctl [file|uri]",
	Short: "Play local files and network streams from the terminal",
	Long: `playctl opens a local media file or a network URI (rtsp, http, rtmp, ...)
through ffprobe and plays it with mpv/vlc. Without arguments it starts an
interactive menu.`,
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: loadConfig,
	RunE:              rootRun,
	SilenceErrors:     true,
	SilenceUsage:      true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "playctl %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Open failures were already shown to the user.
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPlayer, "player", "", "Media player: mpv | vlc | iina | celluloid")
	rootCmd.PersistentFlags().BoolVarP(&flagForceAudio, "force-audio-decode", "a", false, "Disable audio passthrough and hardware decoding")
	rootCmd.PersistentFlags().BoolVarP(&flagForceVideo, "force-video-decode", "v", false, "Force software video decoding")
	rootCmd.PersistentFlags().BoolVar(&flagPreferTCP, "prefer-tcp", false, "Use TCP transport for RTSP streams")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Do not record opened sources")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagPlayer != "" {
		cfg.Player = flagPlayer
	}
	if flagForceAudio {
		cfg.ForceAudioDecode = true
	}
	if flagForceVideo {
		cfg.ForceVideoDecode = true
	}
	if flagPreferTCP {
		cfg.PreferTCP = true
	}
	if flagNoHistory {
		cfg.History = false
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	plog.Configure(logConfig(cfg))
	return nil
}

// logConfig maps the logging keys onto the logger. debug, and so -x,
// wins over log_level.
func logConfig(c *config.Config) plog.Config {
	lc := plog.Config{
		Debug: c.Debug,
		JSON:  strings.EqualFold(c.LogFormat, "json"),
	}
	if !c.Debug {
		lc.Level = strings.ToLower(c.LogLevel)
	}
	return lc
}

// rootRun opens its argument, or starts the interactive menu without one.
func rootRun(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 0 {
		return s.shell(ctx)
	}

	if looksLikeURI(args[0]) {
		err = s.openURI(ctx, args[0])
	} else {
		err = s.openFile(ctx, args[0])
	}
	if err != nil {
		return err
	}
	return s.waitPlayback(ctx)
}
