// Package probe opens media sources with ffprobe.
// ffprobe is invoked with explicit argument slices, never through a shell;
// protocol options are passed as -key value pairs ahead of the input.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"playctl/internal/media"
	"playctl/internal/source"
)

// Runner executes a command and returns its stdout and stderr.
type Runner func(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr []byte, err error)

// optionKeyPattern matches ffmpeg AVOption names.
var optionKeyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// maxReplay bounds how much of a non-seekable stream is held for replay
// while ffprobe reads its header.
const maxReplay = 32 << 20

// Factory implements the media source factory on top of ffprobe.
type Factory struct {
	path        string
	run         Runner
	log         zerolog.Logger
	replayLimit int
}

// New returns a Factory running the ffprobe binary at path.
func New(path string, log zerolog.Logger) *Factory {
	return NewWithRunner(path, execRunner, log)
}

// NewWithRunner returns a Factory with a custom command runner.
func NewWithRunner(path string, run Runner, log zerolog.Logger) *Factory {
	if path == "" {
		path = "ffprobe"
	}
	return &Factory{path: path, run: run, log: log, replayLimit: maxReplay}
}

// Available checks if ffprobe exists in PATH.
func (f *Factory) Available() bool {
	_, err := exec.LookPath(f.path)
	return err == nil
}

// FromURI probes a URI.
func (f *Factory) FromURI(ctx context.Context, uri string, opts media.DecodeOptions) (media.Source, error) {
	out, err := f.probe(ctx, uri, opts, nil)
	if err != nil {
		return nil, err
	}
	src := f.newSource(out, &media.Playable{
		Title:   source.SanitizeTitle(uri),
		URL:     uri,
		Options: opts.Clone(),
	}, nil)
	if src == nil {
		return nil, nil
	}
	return src, nil
}

// FromStream probes r through ffprobe's stdin. A seekable r is handed to
// ffprobe as is and rewound afterwards. Otherwise the bytes ffprobe consumed
// are kept, up to a limit, and replayed ahead of the rest of r. The returned
// Source closes r; on any other result r stays with the caller.
func (f *Factory) FromStream(ctx context.Context, name string, r io.Reader, opts media.DecodeOptions) (media.Source, error) {
	seeker, seekable := r.(io.Seeker)
	var start int64
	if seekable {
		pos, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			// Pipes and ttys implement Seek but fail it.
			seekable = false
		}
		start = pos
	}

	stdin := r
	var consumed *cappedBuffer
	if !seekable {
		consumed = &cappedBuffer{max: f.replayLimit}
		stdin = io.TeeReader(r, consumed)
	}

	out, err := f.probe(ctx, "pipe:0", opts, stdin)
	if consumed != nil && consumed.overflow {
		return nil, fmt.Errorf("stream too large to probe without seeking (over %d bytes read)", f.replayLimit)
	}
	if err != nil {
		return nil, err
	}

	replay := r
	if seekable {
		if _, err := seeker.Seek(start, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding %s: %w", name, err)
		}
	} else {
		replay = io.MultiReader(bytes.NewReader(consumed.buf.Bytes()), r)
	}

	var closer io.Closer
	if c, ok := r.(io.Closer); ok {
		closer = c
	}

	src := f.newSource(out, &media.Playable{
		Title:   source.SanitizeTitle(name),
		Reader:  replay,
		Options: opts.Clone(),
	}, closer)
	if src == nil {
		return nil, nil
	}
	return src, nil
}

func (f *Factory) probe(ctx context.Context, input string, opts media.DecodeOptions, stdin io.Reader) (*output, error) {
	args := f.args(input, opts)
	f.log.Debug().Strs("args", args).Msg("running ffprobe")

	stdout, stderr, err := f.run(ctx, f.path, args, stdin)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s not found in PATH: %w", f.path, err)
		}
		if msg := lastLine(stderr); msg != "" {
			return nil, errors.New(msg)
		}
		return nil, fmt.Errorf("running %s: %w", f.path, err)
	}

	out, err := parseOutput(stdout)
	if err != nil {
		return nil, fmt.Errorf("parsing %s output: %w", f.path, err)
	}
	return out, nil
}

func (f *Factory) args(input string, opts media.DecodeOptions) []string {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
	}

	keys := make([]string, 0, len(opts.Protocol))
	for k := range opts.Protocol {
		if !optionKeyPattern.MatchString(k) {
			f.log.Warn().Str("option", k).Msg("skipping malformed protocol option")
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		args = append(args, "-"+k, opts.Protocol[k])
	}

	return append(args, "-i", input)
}

// newSource returns nil when ffprobe reported no streams at all.
func (f *Factory) newSource(out *output, playable *media.Playable, closer io.Closer) *Source {
	if len(out.Streams) == 0 {
		return nil
	}

	for _, s := range out.Streams {
		playable.Streams = append(playable.Streams, media.StreamInfo{
			Index:     s.Index,
			CodecType: s.CodecType,
			CodecName: s.CodecName,
		})
	}

	src := &Source{format: out.Format.FormatName, closer: closer}
	if playable.HasAudio() || playable.HasVideo() {
		src.playable = playable
	}

	f.log.Debug().
		Str("format", src.format).
		Int("streams", len(playable.Streams)).
		Bool("audio", playable.HasAudio()).
		Bool("video", playable.HasVideo()).
		Msg("probed source")
	return src
}

var errReplayFull = errors.New("replay buffer full")

// cappedBuffer keeps written bytes until max is reached, then fails every
// write so the tee stops feeding ffprobe.
type cappedBuffer struct {
	buf      bytes.Buffer
	max      int
	overflow bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.buf.Len()+len(p) > c.max {
		c.overflow = true
		return 0, errReplayFull
	}
	return c.buf.Write(p)
}

// Source is a probed media source.
type Source struct {
	playable *media.Playable
	format   string
	closer   io.Closer
	once     sync.Once
}

// PlayableStream returns nil when the source has no audio or video stream.
func (s *Source) PlayableStream() *media.Playable { return s.playable }

// Format returns the container format reported by ffprobe.
func (s *Source) Format() string { return s.format }

// Close releases the underlying stream, if any.
func (s *Source) Close() error {
	var err error
	s.once.Do(func() {
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}

type output struct {
	Streams []struct {
		Index     int    `json:"index"`
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

func parseOutput(data []byte) (*output, error) {
	var out output
	if len(bytes.TrimSpace(data)) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// lastLine returns the last non-empty line of ffprobe's diagnostics.
func lastLine(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

func execRunner(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
