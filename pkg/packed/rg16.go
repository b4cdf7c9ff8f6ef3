// Package packed provides packed vector formats used for texture uploads.
package packed

import (
	"math"
	"strconv"
)

// Scale maps the signed byte range onto [-1, 1].
const Scale = 127.0

// Rg16 holds two signed normalized components, x in the low byte and y in
// the high byte.
type Rg16 uint16

// NewRg16 packs x and y after clamping each to [-1, 1].
func NewRg16(x, y float64) Rg16 {
	return Rg16(packComponent(x) | packComponent(y)<<8)
}

// Rg16FromBytes builds a value from its little-endian byte pair.
func Rg16FromBytes(lo, hi byte) Rg16 {
	return Rg16(uint16(lo) | uint16(hi)<<8)
}

// ChromaRg16 packs two unsigned 8-bit chroma samples centred on 128.
func ChromaRg16(cb, cr uint8) Rg16 {
	return NewRg16((float64(cb)-128)/Scale, (float64(cr)-128)/Scale)
}

func packComponent(v float64) uint16 {
	v = math.Max(-1, math.Min(1, v))
	return uint16(int(math.Round(v*Scale)) & 0xFF)
}

// Vector unpacks both components.
func (p Rg16) Vector() (x, y float64) {
	return float64(int8(p&0xFF)) / Scale, float64(int8(p>>8)) / Scale
}

// Vector4 unpacks to (x, y, 0, 1).
func (p Rg16) Vector4() [4]float64 {
	x, y := p.Vector()
	return [4]float64{x, y, 0, 1}
}

// Bytes returns the little-endian byte pair.
func (p Rg16) Bytes() (lo, hi byte) {
	return byte(p), byte(p >> 8)
}

// Alpha returns the packed value scaled by 1/255.
func (p Rg16) Alpha() float64 {
	return float64(p) / 255
}

func (p Rg16) String() string {
	return strconv.FormatFloat(p.Alpha(), 'g', -1, 64)
}
