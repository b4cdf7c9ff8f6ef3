//go:build !cgo || !aom

package av1decoder

import (
	"fmt"
	"image"

	"github.com/user/supervideo/pkg/ports"
)

// Available reports whether the libaom backend is compiled in.
const Available = false

// Decoder rejects every stream when libaom is not compiled in.
type Decoder struct{}

// New creates a decoder that reports AV1 as unsupported.
func New(logger ports.Logger) *Decoder {
	return &Decoder{}
}

func (d *Decoder) Init(source ports.MediaSource) error {
	return fmt.Errorf("%w: %s (built without libaom)", ports.ErrUnsupportedCodec, source.MimeType)
}

func (d *Decoder) Decode(data []byte) ([]image.Image, error) {
	return nil, ErrNotInitialized
}

func (d *Decoder) Flush() ([]image.Image, error) {
	return nil, nil
}

func (d *Decoder) Close() {}

var _ ports.FrameDecoder = (*Decoder)(nil)
