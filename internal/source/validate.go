// Package source validates user-supplied media locations before they
// reach the decoding backend.
package source

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"
)

// networkSchemes are the ffmpeg protocols that go over the network. They
// only steer transport options; any other scheme still reaches the backend.
var networkSchemes = map[string]bool{
	"http": true, "https": true,
	"rtsp": true, "rtsps": true,
	"rtmp": true, "rtmps": true,
	"rtp": true, "udp": true, "tcp": true, "srt": true,
	"mms": true, "mmsh": true,
	"ftp": true, "sftp": true,
}

// IsBlank reports whether s is empty or all whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateURI rejects input no backend could take: blank, oversized, with
// control characters or unparseable. Whether the scheme or path can be
// played is left to the backend.
func ValidateURI(raw string) error {
	if IsBlank(raw) {
		return fmt.Errorf("URI cannot be empty")
	}
	if len(raw) > 4096 {
		return fmt.Errorf("URI too long: %d characters", len(raw))
	}
	if strings.ContainsFunc(raw, unicode.IsControl) {
		return fmt.Errorf("URI contains control characters")
	}
	if _, err := url.Parse(strings.TrimSpace(raw)); err != nil {
		return fmt.Errorf("malformed URI: %w", err)
	}
	return nil
}

// Scheme returns the lower-cased scheme of raw, or "" if it has none.
func Scheme(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// transport returns the innermost protocol of a scheme: ffmpeg nests
// protocols as "hls+https" or "crypto+http".
func transport(raw string) string {
	s := Scheme(raw)
	if i := strings.LastIndexByte(s, '+'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// IsRTSP reports whether raw uses an RTSP scheme.
func IsRTSP(raw string) bool {
	s := transport(raw)
	return s == "rtsp" || s == "rtsps"
}

// IsNetwork reports whether raw refers to a network protocol rather than a file.
func IsNetwork(raw string) bool {
	return networkSchemes[transport(raw)]
}

// SanitizeTitle strips control characters and path components from a title
// shown by the player.
func SanitizeTitle(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Host != "" {
		name = u.Host + u.Path
	} else {
		name = filepath.Base(name)
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == "/" {
		return "untitled"
	}
	return name
}
