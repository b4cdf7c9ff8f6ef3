// Package handoff implements the single-slot "latest decoded frame" cell
// shared by the decode worker and the render loop.
//
// The slot is not a queue: a reader always sees the most recent published
// frame. Metadata (sequence, timestamp, size, payload buffer) is updated
// under a mutex held only for the swap. Byte payloads are written into one
// of three buffers, never the one published or the one a reader has pinned,
// so a reader copying pixels never observes a torn write.
package handoff

import (
	"errors"
	"sync"
	"time"
)

const bufferCount = 3

// ErrNoFreeBuffer is returned when every payload buffer is published or pinned.
var ErrNoFreeBuffer = errors.New("handoff: no free payload buffer")

// Snapshot is the metadata of the latest published frame.
type Snapshot struct {
	Sequence  uint64
	Timestamp time.Duration
	Width     int
	Height    int
	// HasBytes is false for frames whose payload lives on an external surface.
	HasBytes bool
}

// Cursor is the consumer's record of the last materialized frame.
type Cursor struct {
	Sequence  uint64
	Timestamp time.Duration
}

// Frame is a materialized frame. Bytes stay valid until Release.
type Frame struct {
	Snapshot
	Bytes []byte

	slot   *Slot
	buffer int
	once   sync.Once
}

// Release unpins the payload buffer so the producer may reuse it.
func (f *Frame) Release() {
	f.once.Do(func() {
		if f.buffer >= 0 {
			f.slot.unpin(f.buffer)
		}
	})
}

// Stats counts slot traffic.
type Stats struct {
	Published uint64
	// Overwritten counts published frames replaced before any reader materialized them.
	Overwritten uint64
	// Notifications counts frame-available messages received.
	Notifications uint64
	// Stale counts notifications older than the published frame.
	Stale uint64
}

// Slot is the handoff cell. The zero value is not usable; call New.
type Slot struct {
	mu sync.Mutex

	seq    uint64
	ts     time.Duration
	width  int
	height int
	front  int // published buffer index, -1 for surface payloads

	bufs    [bufferCount][]byte
	pins    [bufferCount]int
	writing int

	consumed uint64
	stats    Stats
}

// New creates an empty slot. Sequence 0 means nothing was published.
func New() *Slot {
	return &Slot{front: -1, writing: -1}
}

// Peek returns the latest published metadata.
func (s *Slot) Peek() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Slot) snapshotLocked() Snapshot {
	return Snapshot{
		Sequence:  s.seq,
		Timestamp: s.ts,
		Width:     s.width,
		Height:    s.height,
		HasBytes:  s.front >= 0,
	}
}

// Sequence returns the latest published sequence number.
func (s *Slot) Sequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Stats returns a snapshot of the counters.
func (s *Slot) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// AcquireWriteBuffer returns a buffer of size bytes that no reader can see.
// The producer fills it and then calls Publish. Only one producer may use
// a slot.
func (s *Slot) AcquireWriteBuffer(size int) ([]byte, error) {
	s.mu.Lock()
	idx := -1
	for i := 0; i < bufferCount; i++ {
		if i != s.front && s.pins[i] == 0 {
			idx = i
			break
		}
	}
	s.writing = idx
	s.mu.Unlock()

	if idx < 0 {
		return nil, ErrNoFreeBuffer
	}
	// the buffer is unreachable by readers until published, so it can be
	// resized outside the lock
	if cap(s.bufs[idx]) < size {
		s.bufs[idx] = make([]byte, size)
	}
	s.bufs[idx] = s.bufs[idx][:size]
	return s.bufs[idx], nil
}

// Publish makes the buffer returned by the last AcquireWriteBuffer the
// current frame and returns its sequence number.
func (s *Slot) Publish(ts time.Duration, width, height int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.front = s.writing
	s.writing = -1
	return s.commitLocked(ts, width, height)
}

// NotifyFrameAvailable is the frame-available message from an external
// surface. It publishes the frame the message names. Messages older than
// the published frame are counted as stale and ignored, so a late
// notification never moves the timestamp backwards.
func (s *Slot) NotifyFrameAvailable(ts time.Duration, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Notifications++
	if s.seq > 0 && ts < s.ts {
		s.stats.Stale++
		return
	}
	s.front = -1
	s.commitLocked(ts, width, height)
}

func (s *Slot) commitLocked(ts time.Duration, width, height int) uint64 {
	if s.seq > s.consumed {
		s.stats.Overwritten++
	}
	s.seq++
	s.ts = ts
	s.width = width
	s.height = height
	s.stats.Published++
	return s.seq
}

// MaterializeIfNewer returns the latest frame when its sequence is greater
// than the cursor's, advancing the cursor. Byte payloads are pinned until
// the returned frame is released.
func (s *Slot) MaterializeIfNewer(c *Cursor) (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq <= c.Sequence {
		return nil, false
	}
	f := &Frame{Snapshot: s.snapshotLocked(), slot: s, buffer: s.front}
	if s.front >= 0 {
		s.pins[s.front]++
		f.Bytes = s.bufs[s.front]
	}
	c.Sequence = s.seq
	c.Timestamp = s.ts
	s.consumed = s.seq
	return f, true
}

func (s *Slot) unpin(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pins[idx] > 0 {
		s.pins[idx]--
	}
}
