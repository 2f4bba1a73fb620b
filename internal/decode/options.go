// Package decode assembles the options handed to the decoding backend for
// each open attempt.
package decode

import (
	"maps"
	"strconv"
	"time"

	"playctl/internal/media"
	"playctl/internal/source"
)

// UserAgent identifies playctl to HTTP-based servers.
const UserAgent = "playctl"

// Toggles are the user-facing switches and the optional extra protocol
// options, as read from flags and config.
type Toggles struct {
	ForceAudio bool
	ForceVideo bool
	Protocol   map[string]string
}

// Builder holds the transport policy applied to URI opens.
// The zero value applies only the fixed user agent.
type Builder struct {
	PreferTCP     bool          // Ask RTSP demuxers for interleaved TCP transport
	SocketTimeout time.Duration // Zero leaves the backend default
}

// Build returns options for a stream-backed open.
func (b Builder) Build(t Toggles) media.DecodeOptions {
	return media.DecodeOptions{
		ForceAudioDecode: t.ForceAudio,
		ForceVideoDecode: t.ForceVideo,
		Protocol:         copyProtocol(t.Protocol),
	}
}

// BuildForURI returns options for a URI-backed open. The user agent always
// wins over a user-supplied value.
func (b Builder) BuildForURI(uri string, t Toggles) media.DecodeOptions {
	opts := b.Build(t)

	opts.Protocol["user_agent"] = UserAgent

	if source.IsRTSP(uri) && b.PreferTCP {
		opts.Protocol["rtsp_flags"] = "prefer_tcp"
	}

	if b.SocketTimeout > 0 && source.IsNetwork(uri) {
		us := strconv.FormatInt(b.SocketTimeout.Microseconds(), 10)
		if source.IsRTSP(uri) {
			opts.Protocol["stimeout"] = us
		} else {
			opts.Protocol["timeout"] = us
		}
	}

	return opts
}

func copyProtocol(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+3)
	maps.Copy(out, m)
	return out
}
