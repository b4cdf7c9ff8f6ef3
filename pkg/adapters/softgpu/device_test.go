package softgpu

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/user/supervideo/pkg/packed"
	"github.com/user/supervideo/pkg/ports"
)

func newDevice(t *testing.T, w, h int) *Device {
	t.Helper()
	d, err := NewDevice(w, h)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	return d
}

type constShader struct{ v ports.Vec4 }

func (s constShader) Name() string { return "const" }
func (s constShader) Shade(ports.Sampler, ports.Texture, float64, float64) ports.Vec4 {
	return s.v
}

func TestNewTextureValidation(t *testing.T) {
	d := newDevice(t, 4, 4)
	if _, err := d.NewTexture(0, 4, ports.Color); !errors.Is(err, ports.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	tex, err := d.NewTexture(8, 8, ports.RgbaAstc4x4)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}
	if err := tex.SetData(make([]byte, 64)); err != nil {
		t.Errorf("SetData with 4 blocks failed: %v", err)
	}
	if err := tex.SetData(make([]byte, 63)); !errors.Is(err, ports.ErrInvalidArgument) {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestSetDataRange(t *testing.T) {
	d := newDevice(t, 4, 4)
	tex, _ := d.NewTexture(2, 1, ports.Luma8)
	if err := tex.SetDataRange([]byte{7, 9}, 1, 1); err != nil {
		t.Fatalf("SetDataRange failed: %v", err)
	}
	got := make([]byte, 2)
	tex.GetData(got)
	if got[0] != 0 || got[1] != 7 {
		t.Errorf("got %v, want [0 7]", got)
	}
	if err := tex.SetDataRange([]byte{1}, 2, 1); !errors.Is(err, ports.ErrInvalidArgument) {
		t.Errorf("expected range error, got %v", err)
	}
}

func TestDisposedTexture(t *testing.T) {
	d := newDevice(t, 4, 4)
	tex, _ := d.NewTexture(1, 1, ports.Color)
	tex.Dispose()
	tex.Dispose()
	if !tex.IsDisposed() {
		t.Error("expected disposed")
	}
	if err := tex.SetData(make([]byte, 4)); !errors.Is(err, ports.ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	stats := d.Stats()
	if stats.Disposed != 1 {
		t.Errorf("disposed = %d, want 1", stats.Disposed)
	}
}

func TestRenderTargetClear(t *testing.T) {
	d := newDevice(t, 4, 4)
	rt, _ := d.NewRenderTarget(2, 2)
	rt.Clear(color.RGBA{R: 10, G: 20, B: 30, A: 255})
	got := make([]byte, 16)
	rt.GetData(got)
	if got[0] != 10 || got[1] != 20 || got[2] != 30 || got[3] != 255 {
		t.Errorf("pixel = %v", got[:4])
	}
}

func TestSetRenderTargetResetsViewport(t *testing.T) {
	d := newDevice(t, 8, 6)
	rt, _ := d.NewRenderTarget(2, 3)
	d.SetRenderTarget(rt)
	if vp := d.Viewport(); vp.Width != 2 || vp.Height != 3 {
		t.Errorf("viewport = %+v", vp)
	}
	if d.RenderTarget() != rt {
		t.Error("render target not bound")
	}
	d.SetRenderTarget(nil)
	if d.RenderTarget() != nil {
		t.Error("expected back buffer")
	}
	if vp := d.Viewport(); vp.Width != 8 || vp.Height != 6 {
		t.Errorf("viewport = %+v", vp)
	}
}

func TestSpriteBatchScalesColor(t *testing.T) {
	d := newDevice(t, 4, 4)
	src, _ := d.NewTexture(1, 1, ports.Color)
	src.SetData([]byte{200, 100, 50, 255})

	b := d.NewSpriteBatch()
	b.Begin(ports.Opaque, nil)
	b.Draw(src, image.Rect(0, 0, 4, 4), color.White)
	if err := b.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	img := d.Snapshot()
	if c := img.RGBAAt(3, 3); c != (color.RGBA{200, 100, 50, 255}) {
		t.Errorf("pixel = %v", c)
	}
}

func TestSpriteBatchClipsToViewport(t *testing.T) {
	d := newDevice(t, 4, 4)
	d.SetViewport(ports.Viewport{Width: 2, Height: 2})
	b := d.NewSpriteBatch()
	b.Begin(ports.Opaque, constShader{ports.Vec4{1, 1, 1, 1}})
	b.Draw(mustTexture(t, d), image.Rect(0, 0, 4, 4), color.White)
	b.End()
	img := d.Snapshot()
	if img.RGBAAt(1, 1).R != 255 {
		t.Error("expected pixel inside viewport to be drawn")
	}
	if img.RGBAAt(3, 3).R != 0 {
		t.Error("expected pixel outside viewport to be untouched")
	}
}

func TestSpriteBatchTintAndBlend(t *testing.T) {
	d := newDevice(t, 1, 1)
	d.BackBuffer().Clear(color.RGBA{R: 0, G: 0, B: 255, A: 255})
	b := d.NewSpriteBatch()
	b.Begin(ports.AlphaBlend, constShader{ports.Vec4{1, 0, 0, 1}})
	b.Draw(mustTexture(t, d), image.Rect(0, 0, 1, 1), color.NRGBA{R: 255, G: 255, B: 255, A: 128})
	b.End()
	c := d.Snapshot().RGBAAt(0, 0)
	if c.R < 125 || c.R > 130 || c.B < 125 || c.B > 130 {
		t.Errorf("blended pixel = %v", c)
	}
}

func TestEndWithoutBegin(t *testing.T) {
	d := newDevice(t, 1, 1)
	if err := d.NewSpriteBatch().End(); !errors.Is(err, ErrNotBegun) {
		t.Errorf("expected ErrNotBegun, got %v", err)
	}
}

func TestSamplerFormats(t *testing.T) {
	d := newDevice(t, 1, 1)
	s := sampler{}

	bgra, _ := d.NewTexture(1, 1, ports.Bgra32)
	bgra.SetData([]byte{255, 0, 0, 255})
	if v := s.Sample(bgra, 0, 0); v[2] != 1 || v[0] != 0 {
		t.Errorf("bgra sample = %v", v)
	}

	luma, _ := d.NewTexture(1, 1, ports.Luma8)
	luma.SetData([]byte{255})
	if v := s.Sample(luma, 0.5, 0.5); v != (ports.Vec4{1, 0, 0, 1}) {
		t.Errorf("luma sample = %v", v)
	}

	rg, _ := d.NewTexture(1, 1, ports.Rg16)
	lo, hi := packed.NewRg16(1, -1).Bytes()
	rg.SetData([]byte{lo, hi})
	if v := s.Sample(rg, 0, 0); v[0] != 1 || v[1] != -1 {
		t.Errorf("rg16 sample = %v", v)
	}

	astc, _ := d.NewTexture(4, 4, ports.RgbaAstc4x4)
	if v := s.Sample(astc, 0, 0); v != (ports.Vec4{1, 0, 1, 1}) {
		t.Errorf("astc sample = %v", v)
	}
}

func TestExternalTextureResize(t *testing.T) {
	d := newDevice(t, 1, 1)
	et, _ := d.NewExternalTexture()
	if et.Width() != 0 {
		t.Errorf("width = %d, want 0", et.Width())
	}
	et.Resize(3, 2)
	if err := et.SetData(make([]byte, 24)); err != nil {
		t.Errorf("SetData after resize failed: %v", err)
	}
}

func TestInvokeCountsAndSavePNG(t *testing.T) {
	d := newDevice(t, 2, 2)
	ran := false
	d.Invoke(func() { ran = true })
	if !ran || d.Stats().Invocations != 1 {
		t.Error("Invoke did not run")
	}
	if err := d.SavePNG(filepath.Join(t.TempDir(), "back.png")); err != nil {
		t.Errorf("SavePNG failed: %v", err)
	}
}

func mustTexture(t *testing.T, d *Device) ports.Texture {
	t.Helper()
	tex, err := d.NewTexture(1, 1, ports.Color)
	if err != nil {
		t.Fatal(err)
	}
	return tex
}
