package output

import (
	"fmt"
	"image"
	"image/color"

	"github.com/user/supervideo/pkg/adapters/extsurface"
	"github.com/user/supervideo/pkg/handoff"
	"github.com/user/supervideo/pkg/ports"
	"github.com/user/supervideo/pkg/shaders"
)

// surfaceStrategy serves the packed and swizzle kinds. The decoder renders
// into an external surface whose frame-available message publishes the
// frame it names. On the render side the surface is latched into an
// external texture and drawn through a shader into a render target. The
// latched content is the newest fully rendered frame, never one older than
// the published metadata.
type surfaceStrategy struct {
	cache

	surface ports.ExternalSurface
	shader  ports.Shader
	// readBack copies the capture into a separate color texture so the
	// render target can be reused for the next pass.
	readBack bool

	batch   ports.SpriteBatch
	ext     ports.ExternalTexture
	capture ports.RenderTarget
	game    ports.Texture
	pixels  []byte
}

func newSurfaceStrategy(kind Kind, source ports.MediaSource, opts Options) (*surfaceStrategy, error) {
	layout, shader := extsurface.RGBA, ports.Shader(shaders.ExternalOES{})
	if kind == Swizzle {
		layout, shader = extsurface.BGRA, shaders.SwapRB{}
	}
	surface, err := extsurface.New(source.Width, source.Height, layout)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	slot := opts.Slot
	surface.SetOnFrameAvailable(func(f ports.SurfaceFrame) {
		slot.NotifyFrameAvailable(f.PresentationTime, f.Width, f.Height)
	})

	s := &surfaceStrategy{
		cache:    newCache(kind, opts),
		surface:  surface,
		shader:   shader,
		readBack: kind == Packed,
	}

	opts.Device.Invoke(func() {
		s.batch = opts.Device.NewSpriteBatch()
		s.ext, err = opts.Device.NewExternalTexture()
	})
	if err != nil {
		surface.Release()
		return nil, fmt.Errorf("create external texture: %w", err)
	}
	return s, nil
}

func (s *surfaceStrategy) Surface() ports.OutputSurface { return s.surface }

// Present lets the decoder render the frame to the surface. It becomes
// visible when the surface reports it available.
func (s *surfaceStrategy) Present(session ports.DecoderSession, frame *ports.OutputFrame) error {
	if err := session.ReleaseOutputFrame(frame, true); err != nil {
		return fmt.Errorf("render frame: %w", err)
	}
	return nil
}

func (s *surfaceStrategy) Texture() (ports.Texture, error) {
	return s.texture(func(*handoff.Frame) (ports.Texture, error) {
		return s.invoke(s.capturePass)
	})
}

// capturePass runs on the device context. When the surface holds nothing
// newer than the last latch, the previous capture is kept.
func (s *surfaceStrategy) capturePass() (ports.Texture, error) {
	_, fresh, err := s.surface.UpdateTexImage(s.ext)
	if err != nil {
		return nil, err
	}
	if !fresh && s.current != nil {
		return nil, errUnchanged
	}
	w, h := s.ext.Width(), s.ext.Height()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: surface has no frame", ports.ErrPlatformNotReady)
	}

	if s.capture == nil || s.capture.Width() != w || s.capture.Height() != h {
		disposeAll(s.capture)
		rt, err := s.dev.NewRenderTarget(w, h)
		if err != nil {
			return nil, fmt.Errorf("create capture target: %w", err)
		}
		s.capture = rt
	}

	prevTarget, prevViewport := s.dev.RenderTarget(), s.dev.Viewport()
	s.dev.SetRenderTarget(s.capture)
	s.capture.Clear(color.Black)
	s.batch.Begin(ports.Opaque, s.shader)
	s.batch.Draw(s.ext, image.Rect(0, 0, w, h), color.White)
	err = s.batch.End()
	s.dev.SetRenderTarget(prevTarget)
	s.dev.SetViewport(prevViewport)
	if err != nil {
		return nil, fmt.Errorf("capture pass: %w", err)
	}

	if !s.readBack {
		return s.capture, nil
	}
	if err := s.ensureGameTexture(w, h); err != nil {
		return nil, err
	}
	if err := s.capture.GetData(s.pixels); err != nil {
		return nil, fmt.Errorf("read back capture: %w", err)
	}
	if err := s.game.SetData(s.pixels); err != nil {
		return nil, fmt.Errorf("upload capture: %w", err)
	}
	return s.game, nil
}

// ensureGameTexture allocates the read-back texture primed with opaque black.
func (s *surfaceStrategy) ensureGameTexture(w, h int) error {
	if s.game != nil && s.game.Width() == w && s.game.Height() == h {
		return nil
	}
	disposeAll(s.game)
	s.game = nil
	tex, err := s.dev.NewTexture(w, h, ports.Color)
	if err != nil {
		return fmt.Errorf("create game texture: %w", err)
	}
	s.pixels = make([]byte, ports.Color.BytesFor(w, h))
	for i := 3; i < len(s.pixels); i += 4 {
		s.pixels[i] = 0xFF
	}
	if err := tex.SetData(s.pixels); err != nil {
		tex.Dispose()
		return fmt.Errorf("prime game texture: %w", err)
	}
	s.game = tex
	return nil
}

func (s *surfaceStrategy) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface.Release()
	s.dev.Invoke(func() {
		disposeAll(s.ext, s.capture, s.game)
	})
	s.current = nil
}
