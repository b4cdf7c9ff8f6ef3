// Package nullsink provides a no-op frame sink implementation.
package nullsink

import (
	"image"

	"github.com/user/supervideo/pkg/ports"
)

// Sink is a no-op implementation of ports.FrameSink.
// It discards all snapshots.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveFrame does nothing.
func (s *Sink) SaveFrame(sequence uint64, img image.Image) error {
	return nil
}

// SaveProbe does nothing.
func (s *Sink) SaveProbe(data []byte) error {
	return nil
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
