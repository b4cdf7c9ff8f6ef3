package handoff

import (
	"sync"
	"testing"
	"time"
)

func publishBytes(t *testing.T, s *Slot, value byte, ts time.Duration) uint64 {
	t.Helper()
	buf, err := s.AcquireWriteBuffer(16)
	if err != nil {
		t.Fatalf("AcquireWriteBuffer: %v", err)
	}
	for i := range buf {
		buf[i] = value
	}
	return s.Publish(ts, 4, 4)
}

func TestEmptySlot(t *testing.T) {
	s := New()
	if snap := s.Peek(); snap.Sequence != 0 || snap.HasBytes {
		t.Errorf("empty slot snapshot = %+v", snap)
	}
	var c Cursor
	if _, ok := s.MaterializeIfNewer(&c); ok {
		t.Error("materialized a frame from an empty slot")
	}
}

func TestMaterializeOnlyNewer(t *testing.T) {
	s := New()
	var c Cursor

	publishBytes(t, s, 1, 0)
	f, ok := s.MaterializeIfNewer(&c)
	if !ok {
		t.Fatal("expected first frame")
	}
	if f.Sequence != 1 || f.Bytes[0] != 1 {
		t.Errorf("frame = seq %d byte %d", f.Sequence, f.Bytes[0])
	}
	f.Release()
	if c.Sequence != 1 {
		t.Errorf("cursor sequence = %d, want 1", c.Sequence)
	}

	if _, ok := s.MaterializeIfNewer(&c); ok {
		t.Error("same sequence materialized twice")
	}

	publishBytes(t, s, 2, 33*time.Millisecond)
	publishBytes(t, s, 3, 66*time.Millisecond)
	f, ok = s.MaterializeIfNewer(&c)
	if !ok || f.Sequence != 3 || f.Bytes[0] != 3 {
		t.Fatalf("expected latest frame 3, got ok=%v frame=%+v", ok, f)
	}
	f.Release()
	if c.Timestamp != 66*time.Millisecond {
		t.Errorf("cursor timestamp = %v", c.Timestamp)
	}

	if st := s.Stats(); st.Published != 3 || st.Overwritten != 1 {
		t.Errorf("stats = %+v, want 3 published, 1 overwritten", st)
	}
}

func TestPinnedBufferNotReused(t *testing.T) {
	s := New()
	var c Cursor

	publishBytes(t, s, 1, 0)
	held, _ := s.MaterializeIfNewer(&c)

	for i := byte(2); i < 10; i++ {
		publishBytes(t, s, i, time.Duration(i)*time.Millisecond)
	}

	for _, b := range held.Bytes {
		if b != 1 {
			t.Fatalf("pinned payload overwritten: %v", held.Bytes)
		}
	}
	held.Release()
	held.Release()
}

func TestNoFreeBuffer(t *testing.T) {
	s := New()
	var frames []*Frame
	for i := 0; i < bufferCount; i++ {
		publishBytes(t, s, byte(i), 0)
		c := Cursor{Sequence: uint64(i)}
		f, _ := s.MaterializeIfNewer(&c)
		frames = append(frames, f)
	}
	if _, err := s.AcquireWriteBuffer(16); err != ErrNoFreeBuffer {
		t.Errorf("expected ErrNoFreeBuffer, got %v", err)
	}
	frames[0].Release()
	if _, err := s.AcquireWriteBuffer(16); err != nil {
		t.Errorf("expected a free buffer after release, got %v", err)
	}
}

func TestSurfaceNotificationPublishesItsFrame(t *testing.T) {
	s := New()
	s.NotifyFrameAvailable(40*time.Millisecond, 8, 6)

	snap := s.Peek()
	if snap.Sequence != 1 || snap.Timestamp != 40*time.Millisecond || snap.HasBytes {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Width != 8 || snap.Height != 6 {
		t.Errorf("size = %dx%d", snap.Width, snap.Height)
	}

	var c Cursor
	f, ok := s.MaterializeIfNewer(&c)
	if !ok || f.Bytes != nil {
		t.Errorf("surface frame = %+v, ok=%v", f, ok)
	}
	f.Release()
}

func TestLateNotificationIsStale(t *testing.T) {
	s := New()
	s.NotifyFrameAvailable(33*time.Millisecond, 4, 4)
	s.NotifyFrameAvailable(0, 4, 4)

	snap := s.Peek()
	if snap.Sequence != 1 || snap.Timestamp != 33*time.Millisecond {
		t.Errorf("late notification changed the slot: %+v", snap)
	}

	s.NotifyFrameAvailable(33*time.Millisecond, 4, 4)
	if s.Sequence() != 2 {
		t.Errorf("equal timestamp should publish, sequence = %d", s.Sequence())
	}

	st := s.Stats()
	if st.Notifications != 3 || st.Stale != 1 || st.Published != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestConcurrentReadersSeeWholeFrames(t *testing.T) {
	s := New()
	const frames = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= frames; i++ {
			buf, err := s.AcquireWriteBuffer(256)
			if err != nil {
				continue
			}
			for j := range buf {
				buf[j] = byte(i)
			}
			s.Publish(time.Duration(i)*time.Millisecond, 16, 16)
		}
	}()

	var c Cursor
	var lastSeq uint64
	deadline := time.Now().Add(5 * time.Second)
	for lastSeq < frames && time.Now().Before(deadline) {
		snap := s.Peek()
		if snap.Sequence < lastSeq {
			t.Fatalf("sequence went backwards: %d after %d", snap.Sequence, lastSeq)
		}
		f, ok := s.MaterializeIfNewer(&c)
		if !ok {
			continue
		}
		if f.Sequence <= lastSeq {
			t.Fatalf("materialized sequence %d after %d", f.Sequence, lastSeq)
		}
		lastSeq = f.Sequence
		first := f.Bytes[0]
		for _, b := range f.Bytes {
			if b != first {
				t.Fatalf("torn payload in sequence %d", f.Sequence)
			}
		}
		f.Release()
	}
	wg.Wait()
}
