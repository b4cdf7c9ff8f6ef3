package playback

import (
	"sync"
	"time"
)

// Stopwatch is a pausable playback clock.
type Stopwatch struct {
	mu      sync.Mutex
	now     func() time.Time
	started time.Time
	banked  time.Duration
	running bool
}

// NewStopwatch returns a running stopwatch at zero.
func NewStopwatch() *Stopwatch {
	return newStopwatchWithClock(time.Now)
}

func newStopwatchWithClock(now func() time.Time) *Stopwatch {
	return &Stopwatch{now: now, started: now(), running: true}
}

// Reset sets elapsed time to zero without changing the running state.
func (s *Stopwatch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banked = 0
	s.started = s.now()
}

// Elapsed returns the running time, excluding paused intervals.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return s.banked
	}
	return s.banked + s.now().Sub(s.started)
}

// Pause stops the clock. Pausing a paused clock does nothing.
func (s *Stopwatch) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.banked += s.now().Sub(s.started)
	s.running = false
}

// Resume restarts a paused clock.
func (s *Stopwatch) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.started = s.now()
	s.running = true
}

// Running reports whether the clock advances.
func (s *Stopwatch) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
