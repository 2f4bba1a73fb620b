// Package player drives an external media player as the playback surface.
// All player invocations use exec.Command with explicit argument slices;
// nothing is passed through a shell.
package player

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"playctl/internal/media"
)

const (
	ipcDrainTimeout = 500 * time.Millisecond
	waitDelay       = 2 * time.Second // Bound on I/O draining after the player exits
)

// Backend is a media player implementation.
type Backend interface {
	// Name returns the player binary name.
	Name() string

	// Available checks if the player binary exists in PATH.
	Available() bool

	// Args returns the command line for p. ipcPath is empty unless the
	// backend supports IPC.
	Args(p *media.Playable, ipcPath string) []string

	// IPC reports whether the player emits events on an IPC socket.
	IPC() bool

	// Fault turns an unexpected exit into a user message, or "" when the
	// exit code means the user closed the player.
	Fault(code int, output string) string
}

// New creates a backend by name.
func New(name string) Backend {
	switch name {
	case "mpv":
		return &MPV{}
	case "vlc":
		return &VLC{}
	case "iina", "celluloid":
		return &Generic{name: name}
	default:
		return &MPV{} // Default to mpv
	}
}

// Surface plays one stream at a time through a Backend. Faults are only
// delivered for the session that is still attached; a stopped or replaced
// session never reports.
type Surface struct {
	backend Backend
	log     zerolog.Logger

	mu      sync.Mutex
	session *session
	last    *session // Most recently attached, kept after it ends
	onFault func(message string)
}

type session struct {
	cmd       *exec.Cmd
	socketDir string
	output    *tailBuffer
	exited    chan struct{} // Closed once the process was reaped
	ipcDone   chan struct{} // Closed by the IPC watcher
	done      chan struct{}

	mu      sync.Mutex
	stopped bool
	fault   string // From IPC, if any
}

// NewSurface returns a surface driving backend.
func NewSurface(backend Backend, log zerolog.Logger) *Surface {
	return &Surface{backend: backend, log: log}
}

// OnFault registers fn to receive playback faults. fn runs on the
// goroutine that waits for the player and must not block for long.
func (s *Surface) OnFault(fn func(message string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFault = fn
}

// Attach stops any current session and starts the player on p.
func (s *Surface) Attach(p *media.Playable) error {
	if p == nil {
		return errors.New("nothing to play")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	if !s.backend.Available() {
		return fmt.Errorf("player %q not found in PATH", s.backend.Name())
	}

	sess := &session{
		output:  newTailBuffer(4096),
		exited:  make(chan struct{}),
		ipcDone: make(chan struct{}),
		done:    make(chan struct{}),
	}

	var socketPath string
	if s.backend.IPC() {
		// Randomized IPC socket path (prevents symlink attacks)
		dir, err := os.MkdirTemp("", "playctl-ipc-*")
		if err != nil {
			return fmt.Errorf("creating temp dir for player socket: %w", err)
		}
		sess.socketDir = dir
		socketPath = filepath.Join(dir, "socket")
	}

	args := s.backend.Args(p, socketPath)
	cmd := exec.Command(s.backend.Name(), args...)
	if p.Reader != nil {
		cmd.Stdin = p.Reader
	}
	cmd.Stdout = sess.output
	cmd.Stderr = sess.output
	cmd.WaitDelay = waitDelay
	sess.cmd = cmd

	s.log.Debug().Str("player", s.backend.Name()).Strs("args", args).Msg("starting player")
	if err := cmd.Start(); err != nil {
		if sess.socketDir != "" {
			os.RemoveAll(sess.socketDir)
		}
		return fmt.Errorf("starting %s: %w", s.backend.Name(), err)
	}

	s.session = sess
	s.last = sess
	if socketPath != "" {
		go watchIPC(sess, socketPath)
	} else {
		close(sess.ipcDone)
	}
	go s.wait(sess)
	return nil
}

// Stop terminates the current session, if any. It does not wait for the
// player to exit.
func (s *Surface) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Surface) stopLocked() {
	sess := s.session
	if sess == nil {
		return
	}
	s.session = nil

	sess.mu.Lock()
	sess.stopped = true
	sess.mu.Unlock()

	if sess.cmd.Process != nil {
		_ = sess.cmd.Process.Kill()
	}
	s.log.Debug().Str("player", s.backend.Name()).Msg("stopped player")
}

// Done returns a channel closed when the most recently attached session
// has ended and its fault, if any, was delivered. Before the first Attach
// the channel is already closed.
func (s *Surface) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.last.done
}

func (s *Surface) wait(sess *session) {
	err := sess.cmd.Wait()
	close(sess.exited)

	// The end-file event may still be in flight on the socket.
	select {
	case <-sess.ipcDone:
	case <-time.After(ipcDrainTimeout):
	}
	if sess.socketDir != "" {
		os.RemoveAll(sess.socketDir)
	}

	s.mu.Lock()
	if s.session == sess {
		s.session = nil
	}
	fn := s.onFault
	s.mu.Unlock()

	sess.mu.Lock()
	stopped, ipcFault := sess.stopped, sess.fault
	sess.mu.Unlock()

	// done closes after the fault was delivered so waiters see both.
	defer close(sess.done)

	if stopped {
		return
	}

	msg := ipcFault
	if msg == "" {
		msg = s.exitFault(err, sess.output.String())
	}
	if msg == "" {
		s.log.Debug().Str("player", s.backend.Name()).Msg("player exited")
		return
	}

	s.log.Warn().Str("player", s.backend.Name()).Str("fault", msg).Msg("playback fault")
	if fn != nil {
		fn(msg)
	}
}

func (s *Surface) exitFault(err error, output string) string {
	if err == nil {
		return ""
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return s.backend.Fault(exitErr.ExitCode(), output)
	}
	return fmt.Sprintf("%s: %v", s.backend.Name(), err)
}

// protocolOption returns the protocol option key, or "".
func protocolOption(p *media.Playable, key string) string {
	if p.Options.Protocol == nil {
		return ""
	}
	return p.Options.Protocol[key]
}

// input returns the player argument for p's input.
func input(p *media.Playable, stdinArg string) string {
	if p.Reader != nil {
		return stdinArg
	}
	return p.URL
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

var _ io.Writer = (*tailBuffer)(nil)

func newTailBuffer(size int) *tailBuffer {
	return &tailBuffer{max: size}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// lastLine returns the last non-empty line of s.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
