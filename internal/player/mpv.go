package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"slices"
	"time"

	"playctl/internal/media"
)

// MPV implements Backend for mpv.
// Faults are read from mpv's JSON IPC at a randomized socket path.
type MPV struct{}

func (m *MPV) Name() string { return "mpv" }

func (m *MPV) Available() bool {
	_, err := exec.LookPath("mpv")
	return err == nil
}

func (m *MPV) IPC() bool { return true }

// Args builds mpv arguments as an explicit slice, one element per flag.
func (m *MPV) Args(p *media.Playable, ipcPath string) []string {
	args := []string{
		input(p, "-"),
		"--force-media-title=" + p.Title,
		"--no-input-terminal",
		"--msg-level=all=error",
	}

	if ipcPath != "" {
		args = append(args, "--input-ipc-server="+ipcPath)
	}

	args = append(args, mpvDecodeArgs(p)...)
	return append(args, mpvProtocolArgs(p)...)
}

// Fault maps mpv exit codes: 0 is a normal end, 4 is a user quit.
func (m *MPV) Fault(code int, output string) string {
	switch code {
	case 0, 4:
		return ""
	}
	if line := lastLine(output); line != "" {
		return line
	}
	return fmt.Sprintf("mpv exited with status %d", code)
}

// mpvDecodeArgs turns the force-decode toggles into software decoding
// without hardware acceleration or audio passthrough.
func mpvDecodeArgs(p *media.Playable) []string {
	var args []string
	if p.Options.ForceVideoDecode {
		args = append(args, "--hwdec=no")
	}
	if p.Options.ForceAudioDecode {
		args = append(args, "--audio-spdif=")
	}
	return args
}

// mpvProtocolArgs maps protocol options to mpv flags. Options without a
// dedicated flag are handed to libavformat unchanged.
func mpvProtocolArgs(p *media.Playable) []string {
	var args []string
	if ua := protocolOption(p, "user_agent"); ua != "" {
		args = append(args, "--user-agent="+ua)
	}
	if protocolOption(p, "rtsp_flags") == "prefer_tcp" {
		args = append(args, "--rtsp-transport=tcp")
	}

	keys := make([]string, 0, len(p.Options.Protocol))
	for k := range p.Options.Protocol {
		if k == "user_agent" || k == "rtsp_flags" {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		args = append(args, fmt.Sprintf("--demuxer-lavf-o-append=%s=%s", k, p.Options.Protocol[k]))
	}
	return args
}

// ipcEvent is the subset of mpv IPC messages playctl reads.
type ipcEvent struct {
	Event     string `json:"event"`
	Reason    string `json:"reason"`
	FileError string `json:"file_error"`
}

// parseEndFile returns the fault message of an end-file event that ended
// with an error.
func parseEndFile(line []byte) (string, bool) {
	var ev ipcEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		return "", false
	}
	if ev.Event != "end-file" || ev.Reason != "error" {
		return "", false
	}
	if ev.FileError == "" {
		return "mpv: playback error", true
	}
	return "mpv: " + ev.FileError, true
}

// watchIPC reads events from mpv's IPC socket until mpv exits and records
// the first playback error on sess.
func watchIPC(sess *session, socketPath string) {
	defer close(sess.ipcDone)

	// Wait for socket to appear
	for i := 0; i < 50; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		select {
		case <-sess.exited:
			return
		case <-time.After(100 * time.Millisecond):
		}
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return
	}
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		msg, ok := parseEndFile(scanner.Bytes())
		if !ok {
			continue
		}
		sess.mu.Lock()
		if sess.fault == "" {
			sess.fault = msg
		}
		sess.mu.Unlock()
	}
}
