// Package playback runs the decode worker: it feeds compressed samples to a
// decoder session, drains decoded frames, paces them against a playback
// clock and hands them to the output path.
package playback

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/supervideo/pkg/ports"
)

// ErrAlreadyStarted is returned by Start on a running loop.
var ErrAlreadyStarted = errors.New("playback: loop already started")

// Config controls decode timeouts and pacing.
type Config struct {
	// InputTimeout bounds the wait for a free decoder input slot.
	InputTimeout time.Duration
	// OutputTimeout bounds the wait for a decoded frame.
	OutputTimeout time.Duration
	// FrameSkip drops frames that fall more than LateThreshold behind the clock.
	FrameSkip     bool
	LateThreshold time.Duration
	// SkipUntil drops every frame whose timestamp is before it.
	SkipUntil time.Duration
	// PausePoll bounds each sleep so abort and pause are noticed promptly.
	PausePoll time.Duration
}

// DefaultConfig returns the default decode and pacing settings.
func DefaultConfig() Config {
	return Config{
		InputTimeout:  100 * time.Millisecond,
		OutputTimeout: 100 * time.Millisecond,
		LateThreshold: 100 * time.Millisecond,
		PausePoll:     20 * time.Millisecond,
	}
}

// FrameWriter hands a decoded frame to the output path. It must release
// the frame to the session and publish it into the handoff slot, or return
// ports.ErrFrameDropped after releasing it unpublished.
type FrameWriter interface {
	Present(session ports.DecoderSession, frame *ports.OutputFrame) error
}

// Stats counts decode worker activity.
type Stats struct {
	Decoded   uint64
	Presented uint64
	Skipped   uint64
	Backwards uint64
	Slept     time.Duration
}

// Loop is one playback session's decode worker. It owns the demuxer and
// the decoder session and releases both exactly once.
type Loop struct {
	demuxer ports.Demuxer
	session ports.DecoderSession
	writer  FrameWriter
	logger  ports.Logger
	cfg     Config
	clock   *Stopwatch

	started atomic.Bool
	aborted atomic.Bool
	paused  atomic.Bool
	abortCh chan struct{}
	done    chan struct{}

	abortOnce   sync.Once
	releaseOnce sync.Once

	mu       sync.Mutex
	err      error
	stats    Stats
	position time.Duration
}

// New creates a loop. Nothing runs until Start.
func New(demuxer ports.Demuxer, session ports.DecoderSession, writer FrameWriter, logger ports.Logger, cfg Config) *Loop {
	defaults := DefaultConfig()
	if cfg.InputTimeout <= 0 {
		cfg.InputTimeout = defaults.InputTimeout
	}
	if cfg.OutputTimeout <= 0 {
		cfg.OutputTimeout = defaults.OutputTimeout
	}
	if cfg.PausePoll <= 0 {
		cfg.PausePoll = defaults.PausePoll
	}
	return &Loop{
		demuxer: demuxer,
		session: session,
		writer:  writer,
		logger:  logger,
		cfg:     cfg,
		clock:   NewStopwatch(),
		abortCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (l *Loop) Start() error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go l.run()
	return nil
}

// Pause parks the worker and stops the playback clock.
func (l *Loop) Pause() error {
	if !l.started.Load() {
		return ports.ErrPlatformNotReady
	}
	if l.paused.CompareAndSwap(false, true) {
		l.clock.Pause()
	}
	return nil
}

// Resume continues a paused worker at the same media position.
func (l *Loop) Resume() error {
	if !l.started.Load() {
		return ports.ErrPlatformNotReady
	}
	if l.paused.CompareAndSwap(true, false) {
		l.clock.Resume()
	}
	return nil
}

// Paused reports whether Pause is in effect.
func (l *Loop) Paused() bool {
	return l.paused.Load()
}

// Abort asks the worker to stop at its next check.
func (l *Loop) Abort() {
	l.abortOnce.Do(func() {
		l.aborted.Store(true)
		close(l.abortCh)
	})
}

// Join waits for the worker to exit. Joining a loop that was never
// started returns immediately.
func (l *Loop) Join() {
	if !l.started.Load() {
		return
	}
	<-l.done
}

// Shutdown aborts, joins and releases the decoder and demuxer.
func (l *Loop) Shutdown() {
	l.Abort()
	l.Join()
	l.release()
}

// Finished reports whether the worker has exited.
func (l *Loop) Finished() bool {
	if !l.started.Load() {
		return false
	}
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Done is closed when the worker exits.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Err returns the fault that terminated the worker, if any.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Stats returns a snapshot of the worker counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Position returns the timestamp of the last presented frame.
func (l *Loop) Position() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *Loop) release() {
	l.releaseOnce.Do(func() {
		if err := l.session.Stop(); err != nil {
			l.logger.Debug("Decoder stop failed: %v", err)
		}
		l.session.Release()
		if err := l.demuxer.Close(); err != nil {
			l.logger.Debug("Demuxer close failed: %v", err)
		}
		l.logger.Debug("Decoder released")
	})
}

func (l *Loop) fail(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
	l.logger.Error("Decode loop failed: %v", err)
}

func (l *Loop) count(fn func(s *Stats)) {
	l.mu.Lock()
	fn(&l.stats)
	l.mu.Unlock()
}

func (l *Loop) run() {
	defer close(l.done)
	defer l.release()

	l.logger.Debug("Decode worker started")
	defer l.logger.Debug("Decode worker stopped")

	inputDone := false
	first := true
	var firstPTS time.Duration
	lastPTS := time.Duration(-1)

	for !l.aborted.Load() {
		if l.paused.Load() {
			l.wait(l.cfg.PausePoll)
			continue
		}

		if !inputDone {
			done, err := l.feed()
			if err != nil {
				l.fail(err)
				return
			}
			inputDone = done
		}

		frame, err := l.session.TryAcquireOutputFrame(l.cfg.OutputTimeout)
		if err != nil {
			l.fail(wrapFault("acquire output", err))
			return
		}
		if frame == nil {
			continue
		}

		if frame.EndOfStream {
			l.drop(frame)
			l.logger.Debug("End of stream reached")
			return
		}
		l.count(func(s *Stats) { s.Decoded++ })

		pts := frame.PresentationTime
		if lastPTS >= 0 && pts < lastPTS {
			l.logger.Debug("Frame went back in time: %v < %v", pts, lastPTS)
			l.count(func(s *Stats) { s.Backwards++ })
			l.drop(frame)
			continue
		}

		if pts < l.cfg.SkipUntil {
			l.count(func(s *Stats) { s.Skipped++ })
			l.drop(frame)
			continue
		}

		if first {
			first = false
			firstPTS = pts
			l.clock.Reset()
		} else {
			due := pts - firstPTS
			if l.cfg.FrameSkip && l.clock.Elapsed()-due > l.cfg.LateThreshold {
				l.logger.Debug("Skipping late frame at %v", pts)
				l.count(func(s *Stats) { s.Skipped++ })
				l.drop(frame)
				continue
			}
			if !l.sleepUntil(due) {
				l.drop(frame)
				return
			}
		}

		if err := l.writer.Present(l.session, frame); err != nil {
			if errors.Is(err, ports.ErrFrameDropped) {
				l.count(func(s *Stats) { s.Skipped++ })
				continue
			}
			l.fail(wrapFault("present frame", err))
			return
		}
		lastPTS = pts
		l.mu.Lock()
		l.stats.Presented++
		l.position = pts
		l.mu.Unlock()
	}
}

// feed submits at most one sample and reports whether input is complete.
func (l *Loop) feed() (bool, error) {
	slot, ok := l.session.TryAcquireInputSlot(l.cfg.InputTimeout)
	if !ok {
		return false, nil
	}
	sample, err := l.demuxer.ReadNextSample()
	if err != nil {
		return false, wrapFault("read sample", err)
	}
	if sample.EndOfStream {
		if err := l.session.SubmitInput(slot, nil, 0, true); err != nil {
			return false, wrapFault("submit end of stream", err)
		}
		l.logger.Debug("Input complete")
		return true, nil
	}
	if err := l.session.SubmitInput(slot, sample.Data, sample.PresentationTime, false); err != nil {
		return false, wrapFault("submit sample", err)
	}
	l.demuxer.Advance()
	return false, nil
}

func (l *Loop) drop(frame *ports.OutputFrame) {
	if err := l.session.ReleaseOutputFrame(frame, false); err != nil {
		l.logger.Debug("Release frame failed: %v", err)
	}
}

// sleepUntil waits until the clock reaches due. It returns false on abort.
func (l *Loop) sleepUntil(due time.Duration) bool {
	for {
		if l.aborted.Load() {
			return false
		}
		if l.paused.Load() {
			l.wait(l.cfg.PausePoll)
			continue
		}
		remaining := due - l.clock.Elapsed()
		if remaining <= 0 {
			return true
		}
		step := min(remaining, l.cfg.PausePoll)
		start := time.Now()
		l.wait(step)
		l.count(func(s *Stats) { s.Slept += time.Since(start) })
	}
}

// wait sleeps for d or until abort.
func (l *Loop) wait(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-l.abortCh:
	case <-timer.C:
	}
}

func wrapFault(op string, err error) error {
	if errors.Is(err, ports.ErrDecoderFault) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ports.ErrDecoderFault, err)
}
