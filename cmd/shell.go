package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"playctl/internal/history"
	"playctl/internal/media"
	"playctl/internal/ui"
)

const (
	menuOpenFile = "Open local file"
	menuOpenURI  = "Open URI"
	menuRecent   = "Recent"
	menuStop     = "Stop playback"
	menuQuit     = "Quit"
)

var menuItems = []string{menuOpenFile, menuOpenURI, menuRecent, menuStop, menuQuit}

// shell runs the interactive menu until the user quits. Playback faults
// close the menu so the error dialog owns the terminal.
func (s *session) shell(ctx context.Context) error {
	defer s.ctrl.Stop()

	for {
		idx, fault, err := s.menu(ctx)
		if fault != "" {
			s.ctrl.HandlePlaybackFault(ctx, fault)
			continue
		}
		if errors.Is(err, ui.ErrCancelled) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		switch menuItems[idx] {
		case menuOpenFile:
			err = s.pickAndOpen(ctx)
		case menuOpenURI:
			err = s.promptAndOpen(ctx)
		case menuRecent:
			err = s.openRecent(ctx)
		case menuStop:
			s.ctrl.Stop()
		case menuQuit:
			return nil
		}
		s.report(ctx, err)
	}
}

// menu shows the main menu. A fault arriving first cancels the menu and
// is returned instead of a selection.
func (s *session) menu(ctx context.Context) (int, string, error) {
	menuCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type selection struct {
		idx int
		err error
	}
	done := make(chan selection, 1)
	go func() {
		idx, err := s.choose(menuCtx, fmt.Sprintf("playctl [%s]", s.ctrl.State()), menuItems)
		done <- selection{idx, err}
	}()

	select {
	case msg := <-s.faults:
		cancel()
		<-done
		return -1, msg, nil
	case sel := <-done:
		return sel.idx, "", sel.err
	}
}

func (s *session) pickAndOpen(ctx context.Context) error {
	dir, err := cfg.ExpandStartDir()
	if err != nil {
		return err
	}
	path, err := ui.PickSingleFile(cfg.FileFilters, dir)
	if err != nil {
		return err
	}
	if path == "" {
		// Cancelled picker: nothing selected, nothing to report.
		return nil
	}
	return s.openFile(ctx, path)
}

func (s *session) promptAndOpen(ctx context.Context) error {
	uri, err := ui.PromptURI(ctx, os.Stdin, os.Stderr, "")
	if err != nil {
		return err
	}
	return s.openURI(ctx, uri)
}

// openRecent lets the user pick a recently opened source and opens it again.
func (s *session) openRecent(ctx context.Context) error {
	entries, err := history.Load()
	if err != nil {
		return fmt.Errorf("loading recent sources: %w", err)
	}
	if len(entries) == 0 {
		return errors.New("no recent sources")
	}

	idx, err := s.choose(ctx, "Recent", history.FormatForDisplay(entries))
	if err != nil {
		return err
	}

	selected := entries[idx]
	s.log.Debug().Stringer("kind", selected.Kind).Str("location", selected.Location).Msg("reopening")
	if selected.Kind == media.LocalStream {
		if _, err := os.Stat(selected.Location); errors.Is(err, os.ErrNotExist) {
			if rerr := history.Remove(selected.Kind, selected.Location); rerr != nil {
				s.log.Debug().Err(rerr).Msg("pruning recent source failed")
			}
			return fmt.Errorf("%s no longer exists; removed from recent sources", selected.Location)
		}
		return s.openFile(ctx, selected.Location)
	}
	return s.openURI(ctx, selected.Location)
}
