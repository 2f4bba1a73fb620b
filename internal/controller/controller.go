// Package controller decides how a media source is opened and attached to
// the playback surface, and routes every failure to the error reporter.
//
// One Controller owns a single handle slot. Each open stops whatever is
// playing, builds decode options, asks the Factory for a source, checks
// that it has a playable stream and attaches it. A newer open cancels an
// older one still waiting on the Factory; the older one then returns
// ErrSuperseded without touching the surface or the reporter.
package controller

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"playctl/internal/decode"
	"playctl/internal/media"
	"playctl/internal/source"
)

// Factory is the decoding backend.
type Factory interface {
	// FromStream opens an already readable byte stream. A nil source with
	// a nil error means the backend found nothing it can open.
	FromStream(ctx context.Context, name string, r io.Reader, opts media.DecodeOptions) (media.Source, error)

	// FromURI opens a network or file URI, with the same result shape.
	FromURI(ctx context.Context, uri string, opts media.DecodeOptions) (media.Source, error)
}

// Surface plays one attached stream at a time.
type Surface interface {
	Stop()
	Attach(p *media.Playable) error
}

// Reporter shows a message and returns once the user acknowledged it.
type Reporter interface {
	Notify(ctx context.Context, message string) error
}

const playbackFailedMessage = "Playback failed"

// Controller mediates between the shell, the backend and the surface.
type Controller struct {
	factory  Factory
	surface  Surface
	reporter Reporter
	builder  decode.Builder
	log      zerolog.Logger
	onOpen   func(media.Descriptor, *media.Playable)

	mu      sync.Mutex
	state   media.State
	current media.Source
	gen     uint64
	cancel  context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithBuilder sets the transport policy used for URI opens.
func WithBuilder(b decode.Builder) Option {
	return func(c *Controller) { c.builder = b }
}

// WithOpenHook registers fn to run after every successful open.
func WithOpenHook(fn func(media.Descriptor, *media.Playable)) Option {
	return func(c *Controller) { c.onOpen = fn }
}

// New creates an idle controller.
func New(factory Factory, surface Surface, reporter Reporter, opts ...Option) *Controller {
	c := &Controller{
		factory:  factory,
		surface:  surface,
		reporter: reporter,
		log:      zerolog.Nop(),
		state:    media.Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current controller state.
func (c *Controller) State() media.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the last attached source, or nil.
func (c *Controller) Current() media.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// OpenFromStream opens a byte stream the file picker already resolved.
func (c *Controller) OpenFromStream(ctx context.Context, name string, r io.Reader, t decode.Toggles) (media.Source, error) {
	return c.open(ctx, media.Local(name, r), t)
}

// OpenFromURI opens a network URI. Blank or malformed input fails with
// InvalidInput before the backend is called.
func (c *Controller) OpenFromURI(ctx context.Context, uri string, t decode.Toggles) (media.Source, error) {
	return c.open(ctx, media.Remote(strings.TrimSpace(uri)), t)
}

// HandlePlaybackFault reports a failure of the attached stream during
// playback. The attached source is kept and nothing is retried.
func (c *Controller) HandlePlaybackFault(ctx context.Context, message string) {
	c.mu.Lock()
	if c.state == media.Playing {
		c.state = media.Failed
	}
	gen := c.gen
	c.mu.Unlock()

	if strings.TrimSpace(message) == "" {
		message = playbackFailedMessage
	}
	c.log.Warn().Str("message", message).Msg("playback fault")
	c.notify(ctx, gen, message)
}

// Stop ends playback on user request and releases the attached source.
// An open still in flight is superseded.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.surface.Stop()
	if c.current != nil {
		closeSource(c.current)
		c.current = nil
	}
	c.state = media.Idle
	c.log.Debug().Uint64("gen", c.gen).Msg("stopped")
}

func (c *Controller) open(ctx context.Context, desc media.Descriptor, t decode.Toggles) (media.Source, error) {
	openCtx, cancel, gen := c.begin(ctx)
	defer cancel()

	log := c.log.With().Stringer("kind", desc.Kind).Str("name", desc.Name).Uint64("gen", gen).Logger()

	if err := validate(desc); err != nil {
		return nil, c.fail(ctx, gen, invalidInput(err))
	}

	var (
		src media.Source
		err error
	)
	switch desc.Kind {
	case media.LocalStream:
		opts := c.builder.Build(t)
		log.Debug().Bool("force_audio", opts.ForceAudioDecode).Bool("force_video", opts.ForceVideoDecode).Msg("opening stream")
		src, err = c.factory.FromStream(openCtx, desc.Name, desc.Stream, opts)
	case media.RemoteURI:
		opts := c.builder.BuildForURI(desc.URI, t)
		log.Debug().Bool("force_audio", opts.ForceAudioDecode).Bool("force_video", opts.ForceVideoDecode).
			Interface("protocol", opts.Protocol).Msg("opening uri")
		src, err = c.factory.FromURI(openCtx, desc.URI, opts)
	}

	if c.superseded(gen) {
		closeSource(src)
		log.Debug().Msg("open superseded")
		return nil, ErrSuperseded
	}
	if ctx.Err() != nil {
		// The caller gave up, e.g. on SIGINT. Nobody is left to read a dialog.
		closeSource(src)
		c.abandon(gen)
		log.Debug().Err(ctx.Err()).Msg("open interrupted")
		return nil, ctx.Err()
	}
	if err != nil {
		closeSource(src)
		return nil, c.fail(ctx, gen, backendFailure(err))
	}
	if src == nil {
		return nil, c.fail(ctx, gen, cannotOpen())
	}

	playable := src.PlayableStream()
	if playable == nil {
		closeSource(src)
		return nil, c.fail(ctx, gen, cannotOpen())
	}

	if err := c.commit(gen, src, playable); err != nil {
		closeSource(src)
		if errors.Is(err, ErrSuperseded) {
			log.Debug().Msg("open superseded")
			return nil, err
		}
		return nil, c.fail(ctx, gen, backendFailure(err))
	}

	ev := log.Info().Str("title", playable.Title)
	if f, ok := src.(interface{ Format() string }); ok && f.Format() != "" {
		ev = ev.Str("format", f.Format())
	}
	ev.Msg("playing")
	if c.onOpen != nil {
		c.onOpen(desc, playable)
	}
	return src, nil
}

// begin supersedes any in-flight open, stops playback and releases the
// previous source.
func (c *Controller) begin(ctx context.Context) (context.Context, context.CancelFunc, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	openCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.surface.Stop()
	if c.current != nil {
		closeSource(c.current)
		c.current = nil
	}
	c.state = media.Opening
	return openCtx, cancel, c.gen
}

// commit attaches playable if gen is still the latest open.
func (c *Controller) commit(gen uint64, src media.Source, playable *media.Playable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return ErrSuperseded
	}
	if err := c.surface.Attach(playable); err != nil {
		return err
	}
	c.current = src
	c.state = media.Playing
	return nil
}

func (c *Controller) superseded(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.gen
}

// abandon returns an interrupted open to Idle without reporting.
func (c *Controller) abandon(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.state = media.Idle
		c.cancel = nil
	}
}

// fail moves to Failed and reports oe once, unless a newer open already
// replaced this one.
func (c *Controller) fail(ctx context.Context, gen uint64, oe *OpenError) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.state = media.Failed
	c.mu.Unlock()

	c.log.Warn().Err(oe).Uint64("gen", gen).Msg("open failed")
	c.notify(ctx, gen, oe.Message)
	return oe
}

// notify blocks on the reporter, then returns to Idle if nothing else
// happened meanwhile.
func (c *Controller) notify(ctx context.Context, gen uint64, message string) {
	if err := c.reporter.Notify(ctx, message); err != nil {
		c.log.Error().Err(err).Msg("error reporter failed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen && c.state == media.Failed {
		c.state = media.Idle
	}
}

func validate(desc media.Descriptor) error {
	switch desc.Kind {
	case media.LocalStream:
		if desc.Stream == nil {
			return errors.New("No media file selected")
		}
	case media.RemoteURI:
		if source.IsBlank(desc.URI) {
			return errors.New("Enter a media URI")
		}
		return source.ValidateURI(desc.URI)
	default:
		return errors.New("Unknown media source")
	}
	return nil
}

func closeSource(src media.Source) {
	if src != nil {
		_ = src.Close()
	}
}
