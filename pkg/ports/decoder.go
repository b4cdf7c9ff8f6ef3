package ports

import (
	"image"
	"time"
)

// InputSlot identifies a decoder input buffer acquired by TryAcquireInputSlot.
type InputSlot int

// OutputFrame is a decoded frame held by the decoder until released.
type OutputFrame struct {
	// Index identifies the output buffer inside the session.
	Index            int
	PresentationTime time.Duration
	EndOfStream      bool
	Width            int
	Height           int
	// Image holds the raw decoded pixels. It is nil for end-of-stream frames.
	Image image.Image
}

// OutputSurface receives frames released with render=true.
type OutputSurface interface {
	Render(img image.Image, pts time.Duration) error
}

// SurfaceFrame identifies a frame rendered into an external surface.
type SurfaceFrame struct {
	PresentationTime time.Duration
	Width            int
	Height           int
}

// ExternalSurface is a GPU-side surface a decoder renders into directly.
// The platform fires the frame-available callback asynchronously after
// each Render, in render order; UpdateTexImage latches the newest frame
// into a texture.
type ExternalSurface interface {
	OutputSurface

	// SetOnFrameAvailable registers the frame-available notification. It
	// receives the frame whose render triggered it.
	SetOnFrameAvailable(fn func(SurfaceFrame))

	// UpdateTexImage copies the latest rendered frame into tex. The bool
	// is false when nothing new was rendered since the last latch.
	UpdateTexImage(tex ExternalTexture) (time.Duration, bool, error)

	// Release frees the surface.
	Release()
}

// DecoderSession wraps a queue-based decoder: input slots are filled with
// compressed samples and decoded output frames are drained and released.
type DecoderSession interface {
	// Configure binds the session to a stream and an optional output
	// target. It fails with ErrUnsupportedCodec.
	Configure(source MediaSource, target OutputSurface) error

	Start() error

	// TryAcquireInputSlot waits at most timeout for a free input buffer.
	TryAcquireInputSlot(timeout time.Duration) (InputSlot, bool)

	// SubmitInput queues data for decoding. An empty buffer with
	// endOfStream set signals the end of input.
	SubmitInput(slot InputSlot, data []byte, pts time.Duration, endOfStream bool) error

	// TryAcquireOutputFrame waits at most timeout for a decoded frame.
	// It returns nil, nil on timeout and wraps ErrDecoderFault on failure.
	TryAcquireOutputFrame(timeout time.Duration) (*OutputFrame, error)

	// ReleaseOutputFrame returns the buffer to the decoder. With render
	// set, the frame is forwarded to the configured output target.
	ReleaseOutputFrame(frame *OutputFrame, render bool) error

	Stop() error

	// Release frees all decoder resources. Only the first call has effect.
	Release()
}

// DecoderFactory creates decoder sessions for a media source.
type DecoderFactory interface {
	// NewSession fails with ErrUnsupportedCodec if no backend handles the codec.
	NewSession(source MediaSource) (DecoderSession, error)
}

// FrameDecoder is a synchronous codec backend driven by a decoder session.
type FrameDecoder interface {
	// Init prepares the backend for the given stream.
	Init(source MediaSource) error

	// Decode consumes one access unit and returns any frames it completed.
	Decode(data []byte) ([]image.Image, error)

	// Flush drains frames still buffered inside the backend.
	Flush() ([]image.Image, error)

	// Close releases backend resources.
	Close()
}
