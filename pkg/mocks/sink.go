package mocks

import (
	"image"
	"sync"

	"github.com/user/supervideo/pkg/ports"
)

// FrameSink is a mock implementation of ports.FrameSink.
type FrameSink struct {
	mu sync.RWMutex

	enabled bool

	Frames map[uint64]image.Image
	Probe  []byte
}

// NewFrameSink creates a new mock FrameSink.
func NewFrameSink(enabled bool) *FrameSink {
	return &FrameSink{
		enabled: enabled,
		Frames:  make(map[uint64]image.Image),
	}
}

func (m *FrameSink) Enabled() bool {
	return m.enabled
}

func (m *FrameSink) SaveFrame(sequence uint64, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames[sequence] = img
	return nil
}

func (m *FrameSink) SaveProbe(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Probe = data
	return nil
}

// FrameCount returns the number of saved frames (for test verification).
func (m *FrameSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Frames)
}

var _ ports.FrameSink = (*FrameSink)(nil)
