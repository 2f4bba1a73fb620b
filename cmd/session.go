package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"playctl/internal/controller"
	"playctl/internal/history"
	plog "playctl/internal/log"
	"playctl/internal/media"
	"playctl/internal/player"
	"playctl/internal/probe"
	"playctl/internal/source"
	"playctl/internal/ui"
)

// errReported marks failures the user already acknowledged in a dialog.
var errReported = errors.New("already reported")

// playback is the part of the player surface the session waits on.
type playback interface {
	Done() <-chan struct{}
}

// selectFunc shows a list and returns the chosen index.
type selectFunc func(ctx context.Context, prompt string, items []string) (int, error)

// session wires one controller to ffprobe, the player and the reporter
// for the lifetime of a command.
type session struct {
	ctrl     *controller.Controller
	surface  playback
	reporter ui.Reporter
	choose   selectFunc
	faults   chan string
	log      zerolog.Logger
}

func newSession() (*session, error) {
	backend := player.New(cfg.Player)
	if !backend.Available() {
		return nil, fmt.Errorf("player %q not found in PATH", cfg.Player)
	}

	prober := probe.New(cfg.FFprobe, plog.WithComponent("probe"))
	if !prober.Available() {
		return nil, fmt.Errorf("%s not found in PATH", cfg.FFprobe)
	}

	surface := player.NewSurface(backend, plog.WithComponent("player"))
	s := &session{
		surface:  surface,
		reporter: ui.NewReporter(),
		choose:   ui.SelectContext,
		faults:   make(chan string, 1),
		log:      plog.WithComponent("cmd"),
	}

	// The waiting goroutine must not block; a second fault while one is
	// pending is dropped.
	surface.OnFault(func(msg string) {
		select {
		case s.faults <- msg:
		default:
		}
	})

	opts := []controller.Option{
		controller.WithLogger(plog.WithComponent("controller")),
		controller.WithBuilder(cfg.Builder()),
	}
	if cfg.History {
		opts = append(opts, controller.WithOpenHook(s.recordRecent))
	}
	s.ctrl = controller.New(prober, surface, s.reporter, opts...)
	return s, nil
}

// openFile opens path and hands the stream to the controller. The probed
// source owns the file once the open succeeded.
func (s *session) openFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("opening media file: %w", err)
	}

	s.reportPendingFaults(ctx)
	if _, err := s.ctrl.OpenFromStream(ctx, abs, f, cfg.Toggles()); err != nil {
		f.Close()
		return openResult(err)
	}
	return nil
}

func (s *session) openURI(ctx context.Context, uri string) error {
	s.reportPendingFaults(ctx)
	_, err := s.ctrl.OpenFromURI(ctx, uri, cfg.Toggles())
	return openResult(err)
}

// waitPlayback blocks until the player exits or ctx ends. A fault is
// handed to the controller, which reports it.
func (s *session) waitPlayback(ctx context.Context) error {
	select {
	case <-s.surface.Done():
	case <-ctx.Done():
		s.ctrl.Stop()
		return nil
	}

	select {
	case msg := <-s.faults:
		s.ctrl.HandlePlaybackFault(ctx, msg)
		return errReported
	default:
		s.ctrl.Stop()
		return nil
	}
}

// reportPendingFaults hands faults raised while the user was in a prompt,
// the picker or the Recent list to the controller before the next open.
func (s *session) reportPendingFaults(ctx context.Context) {
	for {
		select {
		case msg := <-s.faults:
			s.ctrl.HandlePlaybackFault(ctx, msg)
		default:
			return
		}
	}
}

// report shows err unless it is a cancellation or was shown already.
func (s *session) report(ctx context.Context, err error) {
	if err == nil || errors.Is(err, errReported) || errors.Is(err, ui.ErrCancelled) || interrupted(err) {
		return
	}
	if nerr := s.reporter.Notify(ctx, err.Error()); nerr != nil {
		s.log.Error().Err(nerr).Msg("error reporter failed")
	}
}

func (s *session) recordRecent(desc media.Descriptor, p *media.Playable) {
	entry := media.HistoryEntry{
		Kind:     desc.Kind,
		Location: desc.Name,
		Title:    p.Title,
	}
	if err := history.Save(entry); err != nil {
		s.log.Debug().Err(err).Msg("saving recent source failed")
	}
}

// openResult maps controller errors for the caller. Superseded and
// interrupted opens are not failures.
func openResult(err error) error {
	if err == nil || errors.Is(err, controller.ErrSuperseded) || interrupted(err) {
		return nil
	}
	var oe *controller.OpenError
	if errors.As(err, &oe) {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return err
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// looksLikeURI treats an argument with a scheme as a URI
// unless a file of that name exists.
func looksLikeURI(arg string) bool {
	if _, err := os.Stat(arg); err == nil {
		return false
	}
	return source.Scheme(arg) != ""
}
