package player

import (
	"os/exec"

	"playctl/internal/media"
)

// Generic implements Backend for players like iina and celluloid
// that accept mpv-compatible arguments.
type Generic struct {
	name string
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Available() bool {
	_, err := exec.LookPath(g.name)
	return err == nil
}

// IPC is not supported.
func (g *Generic) IPC() bool { return false }

func (g *Generic) Args(p *media.Playable, _ string) []string {
	// Both iina and celluloid accept mpv-style flags
	args := []string{
		input(p, "-"),
		"--force-media-title=" + p.Title,
	}
	args = append(args, mpvDecodeArgs(p)...)
	return append(args, mpvProtocolArgs(p)...)
}

// Fault is never reported: these players do not distinguish a user quit
// from a failure in their exit status.
func (g *Generic) Fault(int, string) string { return "" }
