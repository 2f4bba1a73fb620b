package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playctl/internal/config"
	"playctl/internal/controller"
	"playctl/internal/history"
	"playctl/internal/media"
)

// timeline records what the fakes saw, in order.
type timeline struct {
	mu     sync.Mutex
	events []string
}

func (tl *timeline) add(e string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.events = append(tl.events, e)
}

func (tl *timeline) all() []string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return append([]string(nil), tl.events...)
}

type stubSource struct{ playable *media.Playable }

func (s *stubSource) PlayableStream() *media.Playable { return s.playable }
func (s *stubSource) Close() error                    { return nil }

type stubFactory struct{ tl *timeline }

func (f *stubFactory) FromStream(_ context.Context, name string, _ io.Reader, _ media.DecodeOptions) (media.Source, error) {
	f.tl.add("open:" + name)
	return &stubSource{playable: &media.Playable{Title: filepath.Base(name)}}, nil
}

func (f *stubFactory) FromURI(_ context.Context, uri string, _ media.DecodeOptions) (media.Source, error) {
	f.tl.add("open:" + uri)
	return &stubSource{playable: &media.Playable{Title: uri, URL: uri}}, nil
}

type stubSurface struct {
	tl   *timeline
	done chan struct{}
}

func (s *stubSurface) Stop()                 {}
func (s *stubSurface) Done() <-chan struct{} { return s.done }

func (s *stubSurface) Attach(p *media.Playable) error {
	s.tl.add("attach:" + p.Title)
	return nil
}

type stubReporter struct{ tl *timeline }

func (r *stubReporter) Notify(_ context.Context, msg string) error {
	r.tl.add("notify:" + msg)
	return nil
}

func newTestSession(t *testing.T) (*session, *stubSurface, *timeline) {
	t.Helper()
	prev := cfg
	cfg = config.Default()
	cfg.History = false
	t.Cleanup(func() { cfg = prev })

	tl := &timeline{}
	surface := &stubSurface{tl: tl, done: make(chan struct{})}
	reporter := &stubReporter{tl: tl}
	s := &session{
		surface:  surface,
		reporter: reporter,
		faults:   make(chan string, 1),
		log:      zerolog.Nop(),
		choose: func(context.Context, string, []string) (int, error) {
			return 0, errors.New("no selection expected")
		},
	}
	s.ctrl = controller.New(&stubFactory{tl: tl}, surface, reporter)
	return s, surface, tl
}

func TestOpenResult(t *testing.T) {
	assert.NoError(t, openResult(nil))
	assert.NoError(t, openResult(controller.ErrSuperseded))
	assert.NoError(t, openResult(context.Canceled))

	reported := openResult(&controller.OpenError{Kind: controller.CannotOpen, Message: "Cannot open media"})
	assert.ErrorIs(t, reported, errReported)
	assert.ErrorIs(t, reported, controller.ErrCannotOpen)

	plain := errors.New("fzf not found")
	assert.Same(t, plain, openResult(plain))
}

func TestReportSkipsInterrupted(t *testing.T) {
	s, _, tl := newTestSession(t)
	s.report(context.Background(), context.Canceled)
	s.report(context.Background(), errors.New("no recent sources"))
	assert.Equal(t, []string{"notify:no recent sources"}, tl.all())
}

func TestLooksLikeURI(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	odd := "http:clip.mkv"
	if err := os.WriteFile(filepath.Join(dir, odd), nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		arg  string
		want bool
	}{
		{"rtsp://camera/stream", true},
		{"https://example.com/a.m3u8", true},
		{"movie.mkv", false},
		{"/srv/media/movie.mkv", false},
		{odd, false},
		{"http:other.mkv", true},
	}
	for _, tt := range tests {
		if got := looksLikeURI(tt.arg); got != tt.want {
			t.Errorf("looksLikeURI(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}

func TestOpenURIReportsPendingFaultFirst(t *testing.T) {
	s, _, tl := newTestSession(t)
	s.faults <- "decoder died"

	require.NoError(t, s.openURI(context.Background(), "rtsp://cam/1"))

	assert.Equal(t, []string{"notify:decoder died", "open:rtsp://cam/1", "attach:rtsp://cam/1"}, tl.all())
	assert.Equal(t, media.Playing, s.ctrl.State())
	assert.Empty(t, s.faults)
}

func TestOpenFileReportsPendingFaultFirst(t *testing.T) {
	s, _, tl := newTestSession(t)
	path := filepath.Join(t.TempDir(), "clip.mkv")
	require.NoError(t, os.WriteFile(path, []byte("media"), 0644))
	s.faults <- "end of file: error"

	require.NoError(t, s.openFile(context.Background(), path))

	assert.Equal(t, []string{"notify:end of file: error", "open:" + path, "attach:clip.mkv"}, tl.all())
	assert.Equal(t, media.Playing, s.ctrl.State())
}

func TestWaitPlaybackReportsFaultRaisedDuringWait(t *testing.T) {
	s, surface, tl := newTestSession(t)
	require.NoError(t, s.openURI(context.Background(), "rtsp://cam/1"))

	// The surface delivers the fault before closing done.
	go func() {
		time.Sleep(20 * time.Millisecond)
		s.faults <- "connection reset"
		close(surface.done)
	}()

	err := s.waitPlayback(context.Background())
	assert.ErrorIs(t, err, errReported)
	assert.Equal(t, []string{"open:rtsp://cam/1", "attach:rtsp://cam/1", "notify:connection reset"}, tl.all())
	assert.Equal(t, media.Idle, s.ctrl.State())
}

func TestWaitPlaybackCleanExit(t *testing.T) {
	s, surface, tl := newTestSession(t)
	require.NoError(t, s.openURI(context.Background(), "rtsp://cam/1"))
	close(surface.done)

	assert.NoError(t, s.waitPlayback(context.Background()))
	assert.Equal(t, []string{"open:rtsp://cam/1", "attach:rtsp://cam/1"}, tl.all())
	assert.Equal(t, media.Idle, s.ctrl.State())
}

func TestWaitPlaybackInterrupted(t *testing.T) {
	s, _, tl := newTestSession(t)
	require.NoError(t, s.openURI(context.Background(), "rtsp://cam/1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, s.waitPlayback(ctx))
	assert.Equal(t, []string{"open:rtsp://cam/1", "attach:rtsp://cam/1"}, tl.all())
	assert.Equal(t, media.Idle, s.ctrl.State())
}

func TestMenuReturnsFaultAndClosesSelection(t *testing.T) {
	s, _, _ := newTestSession(t)
	entered := make(chan struct{})
	var selectErr error
	s.choose = func(ctx context.Context, _ string, _ []string) (int, error) {
		close(entered)
		<-ctx.Done()
		selectErr = ctx.Err()
		return -1, ctx.Err()
	}

	go func() {
		<-entered
		s.faults <- "decoder died"
	}()

	idx, fault, err := s.menu(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, -1, idx)
	assert.Equal(t, "decoder died", fault)
	// menu waits for the selection to return before handing back the fault.
	assert.ErrorIs(t, selectErr, context.Canceled)
}

func TestShellReportsFaultRaisedDuringMenu(t *testing.T) {
	s, _, tl := newTestSession(t)
	require.NoError(t, s.openURI(context.Background(), "rtsp://cam/1"))

	calls := 0
	s.choose = func(ctx context.Context, _ string, items []string) (int, error) {
		calls++
		if calls == 1 {
			s.faults <- "decoder died"
			<-ctx.Done()
			return -1, ctx.Err()
		}
		for i, item := range items {
			if item == menuQuit {
				return i, nil
			}
		}
		return -1, errors.New("quit missing from menu")
	}

	require.NoError(t, s.shell(context.Background()))
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"open:rtsp://cam/1", "attach:rtsp://cam/1", "notify:decoder died"}, tl.all())
	assert.Equal(t, media.Idle, s.ctrl.State())
}

func TestOpenRecentPrunesMissingFile(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	s, _, tl := newTestSession(t)
	gone := filepath.Join(t.TempDir(), "gone.mkv")
	require.NoError(t, history.Save(media.HistoryEntry{Kind: media.LocalStream, Location: gone, Title: "gone.mkv"}))
	require.NoError(t, history.Save(media.HistoryEntry{Kind: media.RemoteURI, Location: "rtsp://cam/1", Title: "cam"}))

	s.choose = func(_ context.Context, _ string, items []string) (int, error) {
		require.Len(t, items, 2)
		return 1, nil // Oldest entry: the local file.
	}

	err := s.openRecent(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer exists")
	assert.Empty(t, tl.all())

	entries, err := history.Load()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "rtsp://cam/1", entries[0].Location)
}
