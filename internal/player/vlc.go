package player

import (
	"os/exec"
	"strings"

	"playctl/internal/media"
)

// VLC implements Backend for VLC media player.
type VLC struct{}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool {
	_, err := exec.LookPath("vlc")
	return err == nil
}

// IPC is not supported; faults come from the exit status only.
func (v *VLC) IPC() bool { return false }

func (v *VLC) Args(p *media.Playable, _ string) []string {
	args := []string{
		input(p, "fd://0"),
		"--meta-title", p.Title,
		"--play-and-exit",
	}

	if p.Options.ForceVideoDecode {
		args = append(args, "--avcodec-hw=none")
	}
	if p.Options.ForceAudioDecode {
		args = append(args, "--no-spdif")
	}

	if ua := protocolOption(p, "user_agent"); ua != "" {
		args = append(args, "--http-user-agent", ua)
	}
	if protocolOption(p, "rtsp_flags") == "prefer_tcp" {
		args = append(args, "--rtsp-tcp")
	}

	return args
}

// Fault reports a non-zero exit only when VLC logged an error; VLC also
// exits non-zero when the user closes the window.
func (v *VLC) Fault(code int, output string) string {
	if code == 0 {
		return ""
	}
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], " error: ") {
			return strings.TrimSpace(lines[i])
		}
	}
	return ""
}
