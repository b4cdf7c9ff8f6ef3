package codecsession

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/supervideo/pkg/adapters/logger"
	"github.com/user/supervideo/pkg/ports"
)

// delayBackend emits each frame one input late, like a decoder holding a
// reference frame, and flushes the held frame at end of stream.
type delayBackend struct {
	held    image.Image
	decodes int
	failAt  int
	closed  atomic.Int32
}

func (b *delayBackend) Init(source ports.MediaSource) error {
	if source.MimeType == "video/bad" {
		return ports.ErrUnsupportedCodec
	}
	return nil
}

func (b *delayBackend) Decode(data []byte) ([]image.Image, error) {
	b.decodes++
	if b.failAt > 0 && b.decodes == b.failAt {
		return nil, errors.New("corrupt bitstream")
	}
	img := image.NewGray(image.Rect(0, 0, 8, 4))
	img.Pix[0] = data[0]
	prev := b.held
	b.held = img
	if prev == nil {
		return nil, nil
	}
	return []image.Image{prev}, nil
}

func (b *delayBackend) Flush() ([]image.Image, error) {
	if b.held == nil {
		return nil, nil
	}
	out := []image.Image{b.held}
	b.held = nil
	return out, nil
}

func (b *delayBackend) Close() { b.closed.Add(1) }

type captureSurface struct {
	rendered []time.Duration
}

func (c *captureSurface) Render(img image.Image, pts time.Duration) error {
	c.rendered = append(c.rendered, pts)
	return nil
}

func newSession(t *testing.T, backend *delayBackend, target ports.OutputSurface) *Session {
	t.Helper()
	s := New(backend, logger.NewNoop(), Options{InputSlots: 2})
	if err := s.Configure(ports.MediaSource{MimeType: "video/test"}, target); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func submit(t *testing.T, s *Session, data byte, pts time.Duration, eos bool) {
	t.Helper()
	slot, ok := s.TryAcquireInputSlot(time.Second)
	if !ok {
		t.Fatal("no input slot")
	}
	if err := s.SubmitInput(slot, []byte{data}, pts, eos); err != nil {
		t.Fatalf("SubmitInput: %v", err)
	}
}

func drain(t *testing.T, s *Session) []*ports.OutputFrame {
	t.Helper()
	var frames []*ports.OutputFrame
	for {
		f, err := s.TryAcquireOutputFrame(time.Second)
		if err != nil {
			t.Fatalf("TryAcquireOutputFrame: %v", err)
		}
		if f == nil {
			t.Fatal("timed out waiting for output")
		}
		frames = append(frames, f)
		if f.EndOfStream {
			return frames
		}
	}
}

func TestSessionDecodesInPresentationOrder(t *testing.T) {
	backend := &delayBackend{}
	surface := &captureSurface{}
	s := newSession(t, backend, surface)
	defer s.Release()

	// decode order with a reordered frame: 0, 66, 33
	submit(t, s, 1, 0, false)
	submit(t, s, 2, 66*time.Millisecond, false)
	submit(t, s, 3, 33*time.Millisecond, false)
	submit(t, s, 0, 0, true)

	frames := drain(t, s)
	if len(frames) != 4 {
		t.Fatalf("got %d frames, want 3 plus end of stream", len(frames))
	}
	want := []time.Duration{0, 33 * time.Millisecond, 66 * time.Millisecond}
	for i, w := range want {
		if frames[i].PresentationTime != w {
			t.Errorf("frame %d pts = %v, want %v", i, frames[i].PresentationTime, w)
		}
		if frames[i].Width != 8 || frames[i].Height != 4 {
			t.Errorf("frame %d size = %dx%d", i, frames[i].Width, frames[i].Height)
		}
		if err := s.ReleaseOutputFrame(frames[i], i != 1); err != nil {
			t.Errorf("ReleaseOutputFrame: %v", err)
		}
	}
	if !frames[3].EndOfStream || frames[3].Image != nil {
		t.Errorf("last frame = %+v, want end of stream", frames[3])
	}
	if len(surface.rendered) != 2 {
		t.Errorf("rendered %d frames, want 2", len(surface.rendered))
	}
}

func TestSessionInputSlotsBounded(t *testing.T) {
	s := New(&delayBackend{}, logger.NewNoop(), Options{InputSlots: 2})
	s.Configure(ports.MediaSource{}, nil)
	defer s.Release()

	// worker not started: slots are never returned
	for i := 0; i < 2; i++ {
		slot, ok := s.TryAcquireInputSlot(10 * time.Millisecond)
		if !ok {
			t.Fatalf("slot %d not available", i)
		}
		s.SubmitInput(slot, []byte{1}, 0, false)
	}
	if _, ok := s.TryAcquireInputSlot(10 * time.Millisecond); ok {
		t.Error("acquired more slots than configured")
	}
}

func TestSessionOutputTimeout(t *testing.T) {
	s := newSession(t, &delayBackend{}, nil)
	defer s.Release()
	start := time.Now()
	f, err := s.TryAcquireOutputFrame(20 * time.Millisecond)
	if f != nil || err != nil {
		t.Errorf("expected timeout, got %v, %v", f, err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Error("returned before the timeout elapsed")
	}
}

func TestSessionFault(t *testing.T) {
	s := newSession(t, &delayBackend{failAt: 2}, nil)
	defer s.Release()

	submit(t, s, 1, 0, false)
	submit(t, s, 2, 33*time.Millisecond, false)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err := s.TryAcquireOutputFrame(50 * time.Millisecond)
		if err != nil {
			if !errors.Is(err, ports.ErrDecoderFault) {
				t.Errorf("expected ErrDecoderFault, got %v", err)
			}
			return
		}
	}
	t.Fatal("fault was not reported")
}

func TestSessionConfigureUnsupported(t *testing.T) {
	s := New(&delayBackend{}, logger.NewNoop(), Options{})
	err := s.Configure(ports.MediaSource{MimeType: "video/bad"}, nil)
	if !errors.Is(err, ports.ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Start = %v, want ErrNotConfigured", err)
	}
}

func TestSessionReleaseOnce(t *testing.T) {
	backend := &delayBackend{}
	s := newSession(t, backend, nil)
	s.Stop()
	s.Stop()
	s.Release()
	s.Release()
	if backend.closed.Load() != 1 {
		t.Errorf("backend closed %d times, want 1", backend.closed.Load())
	}
	if err := s.Start(); !errors.Is(err, ErrReleased) {
		t.Errorf("Start after Release = %v", err)
	}
}
