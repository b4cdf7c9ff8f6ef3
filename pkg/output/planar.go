package output

import (
	"fmt"
	"image"
	"image/color"

	"github.com/user/supervideo/pkg/handoff"
	"github.com/user/supervideo/pkg/packed"
	"github.com/user/supervideo/pkg/ports"
)

// planarStrategy copies decoded bytes into the slot as a luma plane of
// w*h bytes followed by ceil(w/2)*ceil(h/2) Rg16 chroma pairs.
type planarStrategy struct {
	cache

	converter ports.ColorConverter
	luma      ports.Texture
	chroma    ports.Texture
}

func newPlanarStrategy(opts Options) *planarStrategy {
	return &planarStrategy{
		cache:     newCache(Planar, opts),
		converter: opts.Converter,
	}
}

func (p *planarStrategy) Surface() ports.OutputSurface { return nil }

func chromaSize(w, h int) (int, int) {
	return (w + 1) / 2, (h + 1) / 2
}

// PlaneSize returns the payload size of a w x h planar frame.
func PlaneSize(w, h int) int {
	cw, ch := chromaSize(w, h)
	return w*h + ports.Rg16.BytesFor(cw, ch)
}

// Present copies the frame into a free slot buffer, releases it without
// rendering and publishes it. When every buffer is published or pinned the
// frame is released and ErrFrameDropped is returned.
func (p *planarStrategy) Present(session ports.DecoderSession, frame *ports.OutputFrame) error {
	if frame.Image == nil {
		session.ReleaseOutputFrame(frame, false)
		return fmt.Errorf("%w: frame %d has no pixels", ports.ErrDecoderFault, frame.Index)
	}
	b := frame.Image.Bounds()
	w, h := b.Dx(), b.Dy()

	buf, err := p.slot.AcquireWriteBuffer(PlaneSize(w, h))
	if err != nil {
		p.logger.Debug("Frame dropped: %v", err)
		if rerr := session.ReleaseOutputFrame(frame, false); rerr != nil {
			return fmt.Errorf("release frame: %w", rerr)
		}
		return fmt.Errorf("%w: %v", ports.ErrFrameDropped, err)
	}
	writePlanes(buf, frame.Image)

	if err := session.ReleaseOutputFrame(frame, false); err != nil {
		return fmt.Errorf("release frame: %w", err)
	}
	p.slot.Publish(frame.PresentationTime, w, h)
	return nil
}

// writePlanes fills buf with the luma plane and the subsampled chroma.
func writePlanes(buf []byte, img image.Image) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cw, ch := chromaSize(w, h)
	chroma := buf[w*h:]

	if yc, ok := img.(*image.YCbCr); ok {
		for y := 0; y < h; y++ {
			i := yc.YOffset(b.Min.X, b.Min.Y+y)
			copy(buf[y*w:(y+1)*w], yc.Y[i:i+w])
		}
		for cy := 0; cy < ch; cy++ {
			for cx := 0; cx < cw; cx++ {
				ci := yc.COffset(b.Min.X+2*cx, b.Min.Y+2*cy)
				lo, hi := packed.ChromaRg16(yc.Cb[ci], yc.Cr[ci]).Bytes()
				chroma[2*(cy*cw+cx)] = lo
				chroma[2*(cy*cw+cx)+1] = hi
			}
		}
		return
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.YCbCrModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.YCbCr)
			buf[y*w+x] = c.Y
			if x%2 == 0 && y%2 == 0 {
				lo, hi := packed.ChromaRg16(c.Cb, c.Cr).Bytes()
				i := 2 * ((y/2)*cw + x/2)
				chroma[i] = lo
				chroma[i+1] = hi
			}
		}
	}
}

func (p *planarStrategy) Texture() (ports.Texture, error) {
	return p.texture(func(f *handoff.Frame) (ports.Texture, error) {
		if !f.HasBytes {
			return nil, fmt.Errorf("%w: frame %d has no payload", ports.ErrInvalidArgument, f.Sequence)
		}
		return p.invoke(func() (ports.Texture, error) {
			return p.upload(f.Bytes, f.Width, f.Height)
		})
	})
}

// upload runs on the device context.
func (p *planarStrategy) upload(data []byte, w, h int) (ports.Texture, error) {
	cw, ch := chromaSize(w, h)
	if len(data) != PlaneSize(w, h) {
		return nil, fmt.Errorf("%w: planar payload is %d bytes, want %d", ports.ErrInvalidArgument, len(data), PlaneSize(w, h))
	}
	var err error
	if p.luma, err = p.resize(p.luma, w, h, ports.Luma8); err != nil {
		return nil, err
	}
	if p.chroma, err = p.resize(p.chroma, cw, ch, ports.Rg16); err != nil {
		return nil, err
	}
	if err := p.luma.SetData(data[:w*h]); err != nil {
		return nil, fmt.Errorf("upload luma: %w", err)
	}
	if err := p.chroma.SetDataRange(data[w*h:], 0, len(data)-w*h); err != nil {
		return nil, fmt.Errorf("upload chroma: %w", err)
	}
	return p.converter.Convert(p.luma, p.chroma)
}

func (p *planarStrategy) resize(tex ports.Texture, w, h int, format ports.SurfaceFormat) (ports.Texture, error) {
	if tex != nil && tex.Width() == w && tex.Height() == h {
		return tex, nil
	}
	disposeAll(tex)
	tex, err := p.dev.NewTexture(w, h, format)
	if err != nil {
		return nil, fmt.Errorf("create %s plane: %w", format, err)
	}
	return tex, nil
}

func (p *planarStrategy) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dev.Invoke(func() {
		disposeAll(p.luma, p.chroma)
	})
	p.luma, p.chroma, p.current = nil, nil, nil
}
