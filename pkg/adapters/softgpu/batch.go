package softgpu

import (
	"errors"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/user/supervideo/pkg/packed"
	"github.com/user/supervideo/pkg/ports"
)

// ErrNotBegun is returned by End without a matching Begin.
var ErrNotBegun = errors.New("softgpu: sprite batch not begun")

// SpriteName is the name of the default pass-through shader.
const SpriteName = "sprite"

type sprite struct {
	src  ports.Texture
	dst  image.Rectangle
	tint color.Color
}

// SpriteBatch implements ports.SpriteBatch.
type SpriteBatch struct {
	dev     *Device
	begun   bool
	blend   ports.BlendMode
	shader  ports.Shader
	sprites []sprite
}

func (b *SpriteBatch) Begin(blend ports.BlendMode, shader ports.Shader) {
	b.begun = true
	b.blend = blend
	b.shader = shader
	b.sprites = b.sprites[:0]
}

func (b *SpriteBatch) Draw(src ports.Texture, dst image.Rectangle, tint color.Color) {
	if tint == nil {
		tint = color.White
	}
	b.sprites = append(b.sprites, sprite{src: src, dst: dst, tint: tint})
}

// End draws the queued sprites into the bound target, clipped to the viewport.
func (b *SpriteBatch) End() error {
	if !b.begun {
		return ErrNotBegun
	}
	b.begun = false
	target, vp := b.dev.bound()

	for _, s := range b.sprites {
		if s.src == nil || s.src.IsDisposed() {
			return ports.ErrDisposed
		}
		if unwrap(s.src) == target.Texture {
			continue
		}
		b.drawSprite(target, vp, s)
	}
	b.sprites = b.sprites[:0]
	return nil
}

func isWhite(c color.Color) bool {
	r, g, bl, a := c.RGBA()
	return r == 0xffff && g == 0xffff && bl == 0xffff && a == 0xffff
}

func (b *SpriteBatch) drawSprite(target *RenderTarget, vp ports.Viewport, s sprite) {
	target.mu.Lock()
	defer target.mu.Unlock()
	dstImg := target.rgba()
	clip := vp.Bounds().Intersect(dstImg.Rect).Intersect(s.dst)
	if clip.Empty() || s.dst.Dx() <= 0 || s.dst.Dy() <= 0 {
		return
	}

	plain := b.shader == nil || b.shader.Name() == SpriteName
	if src := unwrap(s.src); src != nil && plain && src.format == ports.Color &&
		b.blend == ports.Opaque && isWhite(s.tint) {
		src.mu.RLock()
		defer src.mu.RUnlock()
		sub := dstImg.SubImage(clip).(*image.RGBA)
		draw.NearestNeighbor.Scale(sub, s.dst, src.rgba(), src.rgba().Rect, draw.Src, nil)
		return
	}

	tr, tg, tb, ta := s.tint.RGBA()
	tint := ports.Vec4{float64(tr) / 0xffff, float64(tg) / 0xffff, float64(tb) / 0xffff, float64(ta) / 0xffff}
	smp := sampler{}
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		v := (float64(y-s.dst.Min.Y) + 0.5) / float64(s.dst.Dy())
		for x := clip.Min.X; x < clip.Max.X; x++ {
			u := (float64(x-s.dst.Min.X) + 0.5) / float64(s.dst.Dx())
			var c ports.Vec4
			if plain {
				c = smp.Sample(s.src, u, v)
			} else {
				c = b.shader.Shade(smp, s.src, u, v)
			}
			for i := range c {
				c[i] = clamp01(c[i] * tint[i])
			}
			i := dstImg.PixOffset(x, y)
			px := dstImg.Pix[i : i+4 : i+4]
			if b.blend == ports.AlphaBlend {
				inv := 1 - c[3]
				for k := 0; k < 4; k++ {
					px[k] = toByte(c[k] + float64(px[k])/255*inv)
				}
				continue
			}
			for k := 0; k < 4; k++ {
				px[k] = toByte(c[k])
			}
		}
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func toByte(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func toRGBA(v ports.Vec4) color.RGBA {
	return color.RGBA{R: toByte(v[0]), G: toByte(v[1]), B: toByte(v[2]), A: toByte(v[3])}
}

// sampler reads texels with nearest filtering.
type sampler struct{}

// Sample implements ports.Sampler.
func (s sampler) Sample(tex ports.Texture, u, v float64) ports.Vec4 {
	t := unwrap(tex)
	if t == nil {
		return ports.Vec4{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.width == 0 || t.height == 0 {
		return ports.Vec4{0, 0, 0, 1}
	}
	x := clampInt(int(u*float64(t.width)), t.width)
	y := clampInt(int(v*float64(t.height)), t.height)
	return s.texel(t, x, y)
}

// unwrap returns the storage behind a texture created by this package.
func unwrap(tex ports.Texture) *Texture {
	switch t := tex.(type) {
	case *Texture:
		return t
	case *RenderTarget:
		return t.Texture
	case *ExternalTexture:
		return t.Texture
	default:
		return nil
	}
}

func clampInt(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// texel decodes one pixel. Callers hold t.mu.
func (sampler) texel(t *Texture, x, y int) ports.Vec4 {
	switch t.format {
	case ports.Color, ports.ExternalOES:
		i := (y*t.width + x) * 4
		p := t.pix[i : i+4]
		return ports.Vec4{float64(p[0]) / 255, float64(p[1]) / 255, float64(p[2]) / 255, float64(p[3]) / 255}
	case ports.Bgra32:
		i := (y*t.width + x) * 4
		p := t.pix[i : i+4]
		return ports.Vec4{float64(p[2]) / 255, float64(p[1]) / 255, float64(p[0]) / 255, float64(p[3]) / 255}
	case ports.Luma8:
		return ports.Vec4{float64(t.pix[y*t.width+x]) / 255, 0, 0, 1}
	case ports.Rg16:
		i := (y*t.width + x) * 2
		return ports.Vec4(packed.Rg16FromBytes(t.pix[i], t.pix[i+1]).Vector4())
	default:
		// block-compressed texels are not decoded
		return ports.Vec4{1, 0, 1, 1}
	}
}

var (
	_ ports.SpriteBatch = (*SpriteBatch)(nil)
	_ ports.Sampler     = sampler{}
)
