//go:build cgo && aom

package av1decoder

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* av1_iface() {
    return aom_codec_av1_dx();
}

static aom_codec_err_t dec_init(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface) {
    return aom_codec_dec_init(ctx, iface, NULL, 0);
}

static unsigned char* plane(aom_image_t *img, int p) { return img->planes[p]; }
static int stride(aom_image_t *img, int p) { return img->stride[p]; }
static unsigned int width(aom_image_t *img) { return img->d_w; }
static unsigned int height(aom_image_t *img) { return img->d_h; }
static int high_bit_depth(aom_image_t *img) { return (img->fmt & AOM_IMG_FMT_HIGHBITDEPTH) != 0; }
static int x_shift(aom_image_t *img) { return img->x_chroma_shift; }
static int y_shift(aom_image_t *img) { return img->y_chroma_shift; }
*/
import "C"

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/user/supervideo/pkg/ports"
)

// Available reports whether the libaom backend is compiled in.
const Available = true

// Decoder implements ports.FrameDecoder on libaom.
type Decoder struct {
	logger ports.Logger
	codec  *C.aom_codec_ctx_t
}

// New creates an uninitialized decoder.
func New(logger ports.Logger) *Decoder {
	return &Decoder{logger: logger}
}

// Init allocates the libaom context for an AV1 stream.
func (d *Decoder) Init(source ports.MediaSource) error {
	if source.MimeType != Mime {
		return fmt.Errorf("%w: %s", ports.ErrUnsupportedCodec, source.MimeType)
	}
	d.Close()

	codec := (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if codec == nil {
		return fmt.Errorf("allocate decoder context")
	}
	C.memset(unsafe.Pointer(codec), 0, C.sizeof_aom_codec_ctx_t)
	if res := C.dec_init(codec, C.av1_iface()); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(codec))
		return fmt.Errorf("initialize decoder: %d", int(res))
	}
	d.codec = codec
	return nil
}

// Decode submits one temporal unit and returns the frames it completed.
func (d *Decoder) Decode(data []byte) ([]image.Image, error) {
	if d.codec == nil {
		return nil, ErrNotInitialized
	}
	if len(data) == 0 {
		return nil, nil
	}
	res := C.aom_codec_decode(d.codec, (*C.uint8_t)(unsafe.Pointer(&data[0])), C.size_t(len(data)), nil)
	if res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("decode: %d", int(res))
	}
	return d.drain()
}

// Flush signals end of stream and drains delayed frames.
func (d *Decoder) Flush() ([]image.Image, error) {
	if d.codec == nil {
		return nil, nil
	}
	if res := C.aom_codec_decode(d.codec, nil, 0, nil); res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("flush: %d", int(res))
	}
	return d.drain()
}

func (d *Decoder) drain() ([]image.Image, error) {
	var frames []image.Image
	var iter C.aom_codec_iter_t
	for {
		img := C.aom_codec_get_frame(d.codec, &iter)
		if img == nil {
			return frames, nil
		}
		if C.high_bit_depth(img) != 0 {
			return frames, ErrHighBitDepth
		}
		frames = append(frames, copyImage(img))
	}
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

// copyImage copies libaom planes into Go memory. libaom reuses its buffers
// on the next decode call.
func copyImage(img *C.aom_image_t) *image.YCbCr {
	w, h := int(C.width(img)), int(C.height(img))
	ratio := image.YCbCrSubsampleRatio420
	switch {
	case C.x_shift(img) == 0 && C.y_shift(img) == 0:
		ratio = image.YCbCrSubsampleRatio444
	case C.y_shift(img) == 0:
		ratio = image.YCbCrSubsampleRatio422
	}
	out := image.NewYCbCr(image.Rect(0, 0, w, h), ratio)

	cw := (w + int(C.x_shift(img))) >> uint(C.x_shift(img))
	ch := (h + int(C.y_shift(img))) >> uint(C.y_shift(img))
	copyPlane(out.Y, out.YStride, C.plane(img, 0), int(C.stride(img, 0)), w, h)
	copyPlane(out.Cb, out.CStride, C.plane(img, 1), int(C.stride(img, 1)), cw, ch)
	copyPlane(out.Cr, out.CStride, C.plane(img, 2), int(C.stride(img, 2)), cw, ch)
	return out
}

func copyPlane(dst []byte, dstStride int, src *C.uchar, srcStride, w, h int) {
	for y := 0; y < h; y++ {
		row := unsafe.Slice((*byte)(unsafe.Add(unsafe.Pointer(src), y*srcStride)), w)
		copy(dst[y*dstStride:y*dstStride+w], row)
	}
}

var _ ports.FrameDecoder = (*Decoder)(nil)
