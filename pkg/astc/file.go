package astc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/user/supervideo/pkg/ports"
)

// Magic identifies an .astc file.
const Magic = 0x5CA1AB13

// HeaderSize is the length of the .astc file header.
const HeaderSize = 16

// ErrBadHeader is returned for truncated or unrecognised .astc headers.
var ErrBadHeader = errors.New("astc: invalid file header")

// Header is the fixed header of an .astc file.
type Header struct {
	BlockX, BlockY, BlockZ int
	Width, Height, Depth   int
}

// ParseHeader decodes the header and returns the remaining block data.
func ParseHeader(data []byte) (Header, []byte, error) {
	if len(data) < HeaderSize {
		return Header{}, nil, fmt.Errorf("%w: %d bytes", ErrBadHeader, len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return Header{}, nil, fmt.Errorf("%w: bad magic", ErrBadHeader)
	}
	h := Header{
		BlockX: int(data[4]),
		BlockY: int(data[5]),
		BlockZ: int(data[6]),
		Width:  uint24(data[7:10]),
		Height: uint24(data[10:13]),
		Depth:  uint24(data[13:16]),
	}
	return h, data[HeaderSize:], nil
}

func uint24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

// Format maps the block footprint to a surface format.
func (h Header) Format(srgb bool) (ports.SurfaceFormat, error) {
	if h.BlockZ > 1 || h.Depth > 1 {
		return 0, fmt.Errorf("%w: 3D blocks are not supported", ErrBadHeader)
	}
	var f ports.SurfaceFormat
	switch {
	case h.BlockX == 4 && h.BlockY == 4:
		f = ports.RgbaAstc4x4
	case h.BlockX == 5 && h.BlockY == 5:
		f = ports.RgbaAstc5x5
	case h.BlockX == 6 && h.BlockY == 6:
		f = ports.RgbaAstc6x6
	default:
		return 0, fmt.Errorf("%w: block %dx%d", ErrBadHeader, h.BlockX, h.BlockY)
	}
	if srgb {
		f += ports.SRgbaAstc4x4 - ports.RgbaAstc4x4
	}
	return f, nil
}

// Decode parses an .astc file into bitmap content.
func Decode(data []byte, srgb bool) (*BitmapContent, error) {
	h, blocks, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	format, err := h.Format(srgb)
	if err != nil {
		return nil, err
	}
	b, err := NewBitmapContent(format, h.Width, h.Height)
	if err != nil {
		return nil, err
	}
	if err := b.SetPixelData(blocks); err != nil {
		return nil, err
	}
	return b, nil
}

// Load reads and decodes an .astc file.
func Load(fs ports.FileSystem, path string, srgb bool) (*BitmapContent, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data, srgb)
}
