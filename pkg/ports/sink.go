package ports

import (
	"image"
)

// FrameSink receives snapshots of presented frames for inspection.
type FrameSink interface {
	// Enabled returns true if snapshots are written.
	Enabled() bool

	// SaveFrame stores the image presented for the given frame sequence.
	SaveFrame(sequence uint64, img image.Image) error

	// SaveProbe stores a text description of the opened media.
	SaveProbe(data []byte) error
}
