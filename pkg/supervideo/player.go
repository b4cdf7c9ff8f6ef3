// Package supervideo is the video player facade used by a render loop.
//
// A Player owns at most one playback session: a demuxer, a decoder
// session, an output strategy and the decode worker that joins them.
// The render loop polls State and GetTexture on its own schedule; neither
// waits for the worker beyond the handoff slot's critical section.
//
// GetTexture and Dispose dispatch onto the graphics device context, so
// they must not be called from inside GraphicsDevice.Invoke.
package supervideo

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/supervideo/pkg/adapters/logger"
	"github.com/user/supervideo/pkg/handoff"
	"github.com/user/supervideo/pkg/output"
	"github.com/user/supervideo/pkg/playback"
	"github.com/user/supervideo/pkg/ports"
	"github.com/user/supervideo/pkg/shaders"
)

// State is the playback state seen by callers.
type State int

const (
	// Stopped means there is no session or its worker has exited.
	Stopped State = iota
	// Paused means the user paused or no frame has been published yet.
	Paused
	// Playing means frames are being published.
	Playing
)

func (s State) String() string {
	switch s {
	case Paused:
		return "Paused"
	case Playing:
		return "Playing"
	default:
		return "Stopped"
	}
}

// Options are the collaborators of a Player.
type Options struct {
	Device   ports.GraphicsDevice
	Demuxers ports.DemuxerOpener
	Decoders ports.DecoderFactory

	// Output selects the output strategy. Empty means output.Auto.
	Output output.Kind
	// Converter reconstructs color for the planar strategy. It defaults to
	// a shaders.YUVConverter on Device.
	Converter ports.ColorConverter
	Playback  playback.Config
	Logger    ports.Logger
}

type session struct {
	id         uint64
	path       string
	source     ports.MediaSource
	slot       *handoff.Slot
	strategy   output.Strategy
	loop       *playback.Loop
	userPaused bool
}

// Player implements the Stopped/Paused/Playing state machine.
//
// Two locks are involved. ctl serializes the transport calls (Play, Pause,
// Resume, Stop, Dispose) including session setup and teardown. mu guards
// the session fields only and is never held while joining the decode
// worker, so queries from the render loop stay fast during a Stop.
type Player struct {
	opts        Options
	kind        output.Kind
	logger      ports.Logger
	placeholder ports.Texture

	ctl       sync.Mutex
	mu        sync.Mutex
	current   *session
	videoPath string
	nextID    uint64

	disposed    atomic.Bool
	disposeOnce sync.Once
}

// New creates a stopped player.
func New(opts Options) (*Player, error) {
	if opts.Device == nil || opts.Demuxers == nil || opts.Decoders == nil {
		return nil, fmt.Errorf("%w: player needs a device, a demuxer opener and a decoder factory", ports.ErrInvalidArgument)
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoop()
	}
	p := &Player{
		opts:   opts,
		kind:   opts.Output.Resolve(),
		logger: opts.Logger.WithComponent("player"),
	}

	var err error
	opts.Device.Invoke(func() {
		p.placeholder, err = output.NewPlaceholder(opts.Device)
		if p.opts.Converter == nil && err == nil {
			p.opts.Converter = shaders.NewYUVConverter(opts.Device)
		}
	})
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Output strategy: %s", p.kind)
	return p, nil
}

// Play starts path. Playing the current path is a no-op and resumes it
// when paused. Any other path replaces the current session.
func (p *Player) Play(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty video path", ports.ErrInvalidArgument)
	}
	p.ctl.Lock()
	defer p.ctl.Unlock()
	if p.disposed.Load() {
		return ports.ErrDisposed
	}

	if s := p.session(); s != nil && s.path == path && !s.loop.Finished() {
		if p.isUserPaused(s) {
			p.resume(s)
			return nil
		}
		p.logger.Debug("Already playing %s", path)
		return nil
	}

	p.teardown()
	return p.start(path)
}

// session returns the current session.
func (p *Player) session() *session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Player) isUserPaused(s *session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return s.userPaused
}

func (p *Player) setUserPaused(s *session, paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.userPaused = paused
}

// start opens path and installs the session. It runs under ctl.
func (p *Player) start(path string) error {
	s, err := p.open(path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.current = s
	p.videoPath = path
	p.mu.Unlock()
	p.logger.Info("Playing %s", path)

	go func(loop *playback.Loop) {
		<-loop.Done()
		if err := loop.Err(); err != nil {
			p.logger.Warn("Playback ended with error: %v", err)
		}
	}(s.loop)
	return nil
}

// open builds and starts a session. Every partially created resource is
// released on failure.
func (p *Player) open(path string) (s *session, err error) {
	var cleanup []func()
	defer func() {
		if err != nil {
			for i := len(cleanup) - 1; i >= 0; i-- {
				cleanup[i]()
			}
		}
	}()

	demuxer, err := p.opts.Demuxers.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	cleanup = append(cleanup, func() { demuxer.Close() })

	source := demuxer.Source()
	p.logger.Debug("Opened %s: %s %dx%d, %v", path, source.MimeType, source.Width, source.Height, source.Duration)

	decoder, err := p.opts.Decoders.NewSession(source)
	if err != nil {
		return nil, fmt.Errorf("create decoder for %s: %w", source.MimeType, err)
	}
	cleanup = append(cleanup, decoder.Release)

	slot := handoff.New()
	strategy, err := output.New(p.kind, source, output.Options{
		Device:      p.opts.Device,
		Slot:        slot,
		Placeholder: p.placeholder,
		Converter:   p.opts.Converter,
		Logger:      p.opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s output: %w", p.kind, err)
	}
	cleanup = append(cleanup, strategy.Dispose)

	if err := decoder.Configure(source, strategy.Surface()); err != nil {
		return nil, fmt.Errorf("configure decoder: %w", err)
	}
	if err := decoder.Start(); err != nil {
		return nil, fmt.Errorf("start decoder: %w", err)
	}

	loop := playback.New(demuxer, decoder, strategy, p.opts.Logger.WithComponent("decode"), p.opts.Playback)
	if err := loop.Start(); err != nil {
		return nil, err
	}

	p.nextID++
	return &session{
		id:       p.nextID,
		path:     path,
		source:   source,
		slot:     slot,
		strategy: strategy,
		loop:     loop,
	}, nil
}

// Pause parks the decode worker. It does nothing without a running session.
func (p *Player) Pause() {
	p.ctl.Lock()
	defer p.ctl.Unlock()
	s := p.session()
	if s == nil || s.loop.Finished() {
		return
	}
	if err := s.loop.Pause(); err != nil {
		p.logger.Warn("Ignoring %s: %v", "pause", err)
		return
	}
	p.setUserPaused(s, true)
	p.logger.Info("Paused %s", s.path)
}

// Resume continues a paused session, or replays the last path when
// stopped. Without a previous path it does nothing.
func (p *Player) Resume() error {
	p.ctl.Lock()
	defer p.ctl.Unlock()
	if p.disposed.Load() {
		return ports.ErrDisposed
	}
	if s := p.session(); s != nil && !s.loop.Finished() {
		if p.isUserPaused(s) {
			p.resume(s)
		}
		return nil
	}
	path := p.VideoPath()
	if path == "" {
		return nil
	}
	p.teardown()
	return p.start(path)
}

func (p *Player) resume(s *session) {
	if err := s.loop.Resume(); err != nil {
		p.logger.Warn("Ignoring %s: %v", "resume", err)
		return
	}
	p.setUserPaused(s, false)
	p.logger.Info("Resuming %s", s.path)
}

// Stop ends the session and releases the decoder. Stopping twice is a no-op.
func (p *Player) Stop() {
	p.ctl.Lock()
	defer p.ctl.Unlock()
	p.teardown()
}

// teardown detaches the session under mu, then joins the worker and frees
// the output without it. It runs under ctl.
func (p *Player) teardown() {
	p.mu.Lock()
	s := p.current
	p.current = nil
	p.mu.Unlock()
	if s == nil {
		return
	}
	s.loop.Shutdown()
	s.strategy.Dispose()
	p.logger.Info("Stopped %s", s.path)
}

// State derives the playback state from the session.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.current
	switch {
	case s == nil || s.loop.Finished():
		return Stopped
	case s.userPaused || s.slot.Sequence() == 0:
		return Paused
	default:
		return Playing
	}
}

// GetTexture returns the texture of the latest frame, or a 1x1 black
// placeholder before the first frame and without a session.
func (p *Player) GetTexture() (ports.Texture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed.Load() {
		return nil, ports.ErrDisposed
	}
	if p.current == nil {
		return p.placeholder, nil
	}
	return p.current.strategy.Texture()
}

// PlayPosition is the timestamp of the latest published frame.
func (p *Player) PlayPosition() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0
	}
	return p.current.slot.Peek().Timestamp
}

// Duration of the current video, or zero without a session.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0
	}
	return p.current.source.Duration
}

// VideoPath is the last path that started successfully.
func (p *Player) VideoPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoPath
}

// Source describes the current video.
func (p *Player) Source() (ports.MediaSource, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ports.MediaSource{}, false
	}
	return p.current.source, true
}

// SessionID identifies the current session. It changes whenever a new
// decode worker is created and is zero without a session.
func (p *Player) SessionID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0
	}
	return p.current.id
}

// Stats combines the decode worker and handoff counters.
type Stats struct {
	playback.Stats
	Handoff handoff.Stats
	// Conversions counts texture materializations.
	Conversions uint64
}

func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Stats{}
	}
	return Stats{
		Stats:       p.current.loop.Stats(),
		Handoff:     p.current.slot.Stats(),
		Conversions: p.current.strategy.Conversions(),
	}
}

// Err returns the fault that stopped the current session, if any.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return p.current.loop.Err()
}

// Done is closed when the current session's worker exits. Without a
// session the returned channel is already closed.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.current.loop.Done()
}

// IsDisposed reports whether Dispose was called.
func (p *Player) IsDisposed() bool {
	return p.disposed.Load()
}

// Dispose stops playback and frees every resource. Later calls do nothing.
func (p *Player) Dispose() {
	p.disposeOnce.Do(func() {
		p.ctl.Lock()
		defer p.ctl.Unlock()
		p.mu.Lock()
		p.disposed.Store(true)
		p.mu.Unlock()
		p.teardown()

		p.opts.Device.Invoke(func() {
			p.placeholder.Dispose()
			if d, ok := p.opts.Converter.(interface{ Dispose() }); ok {
				d.Dispose()
			}
		})
		p.logger.Debug("Player disposed")
	})
}

// IsFatal reports whether err is one of the errors Play surfaces for a
// video that can never be played.
func IsFatal(err error) bool {
	return errors.Is(err, ports.ErrNoVideoTrack) ||
		errors.Is(err, ports.ErrUnsupportedCodec) ||
		errors.Is(err, ports.ErrNotFound) ||
		errors.Is(err, ports.ErrInvalidArgument)
}
