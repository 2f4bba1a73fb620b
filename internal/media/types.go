// Package media defines shared types for the playctl application.
package media

import (
	"io"
	"maps"
)

// Kind tells which input a Descriptor carries.
type Kind int

const (
	LocalStream Kind = iota
	RemoteURI
)

func (k Kind) String() string {
	switch k {
	case LocalStream:
		return "file"
	case RemoteURI:
		return "uri"
	default:
		return "unknown"
	}
}

// Descriptor identifies the input of a single open attempt.
// Only the fields matching Kind are set.
type Descriptor struct {
	Kind   Kind
	Name   string    // Display name (file path or URI)
	Stream io.Reader // LocalStream only
	URI    string    // RemoteURI only
}

// Local returns a descriptor for a byte stream that was already opened.
func Local(name string, r io.Reader) Descriptor {
	return Descriptor{Kind: LocalStream, Name: name, Stream: r}
}

// Remote returns a descriptor for a network URI.
func Remote(uri string) Descriptor {
	return Descriptor{Kind: RemoteURI, Name: uri, URI: uri}
}

// DecodeOptions configures how the backend opens a source.
type DecodeOptions struct {
	ForceAudioDecode bool
	ForceVideoDecode bool
	Protocol         map[string]string // ffmpeg protocol options, e.g. user_agent
}

// Clone returns a copy that shares no map with o.
func (o DecodeOptions) Clone() DecodeOptions {
	c := o
	c.Protocol = maps.Clone(o.Protocol)
	if c.Protocol == nil {
		c.Protocol = map[string]string{}
	}
	return c
}

// StreamInfo describes one elementary stream reported by the backend.
type StreamInfo struct {
	Index     int
	CodecType string // "audio", "video", "subtitle", "data"
	CodecName string
}

// Playable is the stream handed to the playback surface.
// Exactly one of URL and Reader is set.
type Playable struct {
	Title   string
	URL     string
	Reader  io.Reader
	Options DecodeOptions
	Streams []StreamInfo
}

// HasAudio reports whether any stream is audio.
func (p *Playable) HasAudio() bool { return p.has("audio") }

// HasVideo reports whether any stream is video.
func (p *Playable) HasVideo() bool { return p.has("video") }

func (p *Playable) has(codecType string) bool {
	for _, s := range p.Streams {
		if s.CodecType == codecType {
			return true
		}
	}
	return false
}

// Source is an opened media source as produced by the backend.
type Source interface {
	// PlayableStream returns the stream to attach, or nil if the source
	// has nothing playable.
	PlayableStream() *Playable

	// Close releases backend resources held by the source.
	Close() error
}

// State is the controller state.
type State int

const (
	Idle State = iota
	Opening
	Playing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opening:
		return "opening"
	case Playing:
		return "playing"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// HistoryEntry is one successfully opened source.
type HistoryEntry struct {
	Kind     Kind
	Location string // File path or URI
	Title    string
	OpenedAt int64 // Unix seconds
}
