package mocks

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/supervideo/pkg/ports"
)

// DecoderSession is a mock implementation of ports.DecoderSession.
// Every submitted sample becomes one decoded frame of Width x Height with
// the configured luma, and the end-of-stream input becomes an
// end-of-stream output frame.
type DecoderSession struct {
	mu      sync.Mutex
	target  ports.OutputSurface
	source  ports.MediaSource
	pending []*ports.OutputFrame
	next    int

	Width  int
	Height int
	Luma   uint8

	ConfigureFunc             func(source ports.MediaSource, target ports.OutputSurface) error
	StartFunc                 func() error
	TryAcquireInputSlotFunc   func(timeout time.Duration) (ports.InputSlot, bool)
	SubmitInputFunc           func(slot ports.InputSlot, data []byte, pts time.Duration, eos bool) error
	TryAcquireOutputFrameFunc func(timeout time.Duration) (*ports.OutputFrame, error)

	Configured atomic.Int32
	Started    atomic.Int32
	Stopped    atomic.Int32
	Released   atomic.Int32
	Rendered   atomic.Int32
	Dropped    atomic.Int32
}

// NewDecoderSession creates a mock session producing w x h frames.
func NewDecoderSession(w, h int) *DecoderSession {
	return &DecoderSession{Width: w, Height: h}
}

func (m *DecoderSession) Configure(source ports.MediaSource, target ports.OutputSurface) error {
	m.Configured.Add(1)
	if m.ConfigureFunc != nil {
		return m.ConfigureFunc(source, target)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = source
	m.target = target
	return nil
}

func (m *DecoderSession) Start() error {
	m.Started.Add(1)
	if m.StartFunc != nil {
		return m.StartFunc()
	}
	return nil
}

func (m *DecoderSession) TryAcquireInputSlot(timeout time.Duration) (ports.InputSlot, bool) {
	if m.TryAcquireInputSlotFunc != nil {
		return m.TryAcquireInputSlotFunc(timeout)
	}
	return 0, true
}

func (m *DecoderSession) SubmitInput(slot ports.InputSlot, data []byte, pts time.Duration, eos bool) error {
	if m.SubmitInputFunc != nil {
		return m.SubmitInputFunc(slot, data, pts, eos)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := &ports.OutputFrame{
		Index:            m.next,
		PresentationTime: pts,
		EndOfStream:      eos,
	}
	m.next++
	if !eos {
		frame.Width, frame.Height = m.Width, m.Height
		frame.Image = m.image()
	}
	m.pending = append(m.pending, frame)
	return nil
}

func (m *DecoderSession) image() image.Image {
	img := image.NewYCbCr(image.Rect(0, 0, m.Width, m.Height), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = m.Luma
	}
	for i := range img.Cb {
		img.Cb[i] = 128
		img.Cr[i] = 128
	}
	return img
}

func (m *DecoderSession) TryAcquireOutputFrame(timeout time.Duration) (*ports.OutputFrame, error) {
	if m.TryAcquireOutputFrameFunc != nil {
		return m.TryAcquireOutputFrameFunc(timeout)
	}
	m.mu.Lock()
	if len(m.pending) > 0 {
		frame := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()
		return frame, nil
	}
	m.mu.Unlock()
	time.Sleep(min(timeout, time.Millisecond))
	return nil, nil
}

func (m *DecoderSession) ReleaseOutputFrame(frame *ports.OutputFrame, render bool) error {
	if frame == nil {
		return errors.New("mock: nil frame")
	}
	if !render {
		m.Dropped.Add(1)
		return nil
	}
	m.Rendered.Add(1)
	m.mu.Lock()
	target := m.target
	m.mu.Unlock()
	if target != nil && frame.Image != nil {
		return target.Render(frame.Image, frame.PresentationTime)
	}
	return nil
}

func (m *DecoderSession) Stop() error {
	m.Stopped.Add(1)
	return nil
}

func (m *DecoderSession) Release() {
	m.Released.Add(1)
}

// DecoderFactory is a mock implementation of ports.DecoderFactory.
type DecoderFactory struct {
	mu       sync.Mutex
	sessions []*DecoderSession

	Width  int
	Height int
	Luma   uint8

	NewSessionFunc func(source ports.MediaSource) (ports.DecoderSession, error)
}

// NewDecoderFactory creates a factory of mock sessions producing w x h frames.
func NewDecoderFactory(w, h int) *DecoderFactory {
	return &DecoderFactory{Width: w, Height: h}
}

func (m *DecoderFactory) NewSession(source ports.MediaSource) (ports.DecoderSession, error) {
	if m.NewSessionFunc != nil {
		return m.NewSessionFunc(source)
	}
	s := NewDecoderSession(m.Width, m.Height)
	s.Luma = m.Luma
	m.mu.Lock()
	m.sessions = append(m.sessions, s)
	m.mu.Unlock()
	return s, nil
}

// Sessions returns every session created so far (for test verification).
func (m *DecoderFactory) Sessions() []*DecoderSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*DecoderSession(nil), m.sessions...)
}

var (
	_ ports.DecoderSession = (*DecoderSession)(nil)
	_ ports.DecoderFactory = (*DecoderFactory)(nil)
)
