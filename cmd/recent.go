package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"playctl/internal/history"
	"playctl/internal/ui"
)

var flagRecentList bool

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Reopen a recently played file or stream",
	Args:  cobra.NoArgs,
	RunE:  recentRun,
}

func init() {
	recentCmd.Flags().BoolVarP(&flagRecentList, "list", "l", false, "Print recent sources instead of opening one")
}

func recentRun(cmd *cobra.Command, args []string) error {
	if flagRecentList {
		entries, err := history.Load()
		if err != nil {
			return fmt.Errorf("loading recent sources: %w", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No recent sources.")
			return nil
		}
		for _, item := range history.FormatForDisplay(entries) {
			fmt.Fprintln(cmd.OutOrStdout(), item)
		}
		return nil
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if err := s.openRecent(ctx); err != nil {
		if errors.Is(err, ui.ErrCancelled) {
			return nil
		}
		return err
	}
	return s.waitPlayback(ctx)
}
