package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"playctl/internal/ui"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a local file or a network URI",
}

var openFileCmd = &cobra.Command{
	Use:   "file [path]",
	Short: "Play a local file; without a path, pick one below start_dir",
	Args:  cobra.MaximumNArgs(1),
	RunE:  openFileRun,
}

var openURICmd = &cobra.Command{
	Use:   "uri [uri]",
	Short: "Play a network stream; without a URI, prompt for one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  openURIRun,
}

func init() {
	openCmd.AddCommand(openFileCmd)
	openCmd.AddCommand(openURICmd)
}

func openFileRun(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		dir, err := cfg.ExpandStartDir()
		if err != nil {
			return err
		}
		if path, err = ui.PickSingleFile(cfg.FileFilters, dir); err != nil {
			return err
		}
		if path == "" {
			return nil
		}
	}

	if err := s.openFile(ctx, path); err != nil {
		return err
	}
	return s.waitPlayback(ctx)
}

func openURIRun(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var uri string
	if len(args) == 1 {
		uri = args[0]
	} else {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("no URI given and stdin is not a terminal")
		}
		uri, err = ui.PromptURI(ctx, os.Stdin, os.Stderr, "")
		if errors.Is(err, ui.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	if err := s.openURI(ctx, uri); err != nil {
		return err
	}
	return s.waitPlayback(ctx)
}
