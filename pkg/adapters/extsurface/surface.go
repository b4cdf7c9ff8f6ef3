// Package extsurface emulates a decoder output surface bound to an
// external texture. Frames rendered into it are converted to the
// surface's byte layout and announced through an asynchronous
// frame-available callback. Announcements are delivered one at a time in
// render order, like messages on a platform looper.
package extsurface

import (
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/user/supervideo/pkg/ports"
)

// Layout is the byte order of stored pixels.
type Layout int

const (
	// RGBA stores red first.
	RGBA Layout = iota
	// BGRA stores blue first.
	BGRA
)

func (l Layout) String() string {
	if l == BGRA {
		return "BGRA"
	}
	return "RGBA"
}

// Surface implements ports.ExternalSurface.
type Surface struct {
	layout Layout
	width  int
	height int

	mu       sync.Mutex
	canvas   *image.RGBA
	latest   []byte
	pts      time.Duration
	fresh    bool
	onFrame  func(ports.SurfaceFrame)
	released bool

	queue       []ports.SurfaceFrame
	dispatching bool
}

// New creates a w x h surface.
func New(w, h int, layout Layout) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: surface %dx%d", ports.ErrInvalidArgument, w, h)
	}
	return &Surface{
		layout: layout,
		width:  w,
		height: h,
		canvas: image.NewRGBA(image.Rect(0, 0, w, h)),
		latest: make([]byte, 4*w*h),
	}, nil
}

func (s *Surface) Layout() Layout { return s.layout }

func (s *Surface) SetOnFrameAvailable(fn func(ports.SurfaceFrame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = fn
}

// Render stores img scaled to the surface size and queues a
// frame-available message for it.
func (s *Surface) Render(img image.Image, pts time.Duration) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ports.ErrInvalidArgument)
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return ports.ErrDisposed
	}
	if img.Bounds().Dx() == s.width && img.Bounds().Dy() == s.height {
		draw.Draw(s.canvas, s.canvas.Rect, img, img.Bounds().Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(s.canvas, s.canvas.Rect, img, img.Bounds(), draw.Src, nil)
	}
	copy(s.latest, s.canvas.Pix)
	if s.layout == BGRA {
		for i := 0; i < len(s.latest); i += 4 {
			s.latest[i], s.latest[i+2] = s.latest[i+2], s.latest[i]
		}
	}
	s.pts = pts
	s.fresh = true
	if s.onFrame != nil {
		s.queue = append(s.queue, ports.SurfaceFrame{PresentationTime: pts, Width: s.width, Height: s.height})
		if !s.dispatching {
			s.dispatching = true
			go s.dispatch()
		}
	}
	s.mu.Unlock()
	return nil
}

// dispatch delivers queued messages until the queue drains.
func (s *Surface) dispatch() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.onFrame == nil {
			s.queue = nil
			s.dispatching = false
			s.mu.Unlock()
			return
		}
		msg := s.queue[0]
		s.queue = s.queue[1:]
		fn := s.onFrame
		s.mu.Unlock()

		fn(msg)
	}
}

// UpdateTexImage latches the latest frame into tex.
func (s *Surface) UpdateTexImage(tex ports.ExternalTexture) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return 0, false, ports.ErrDisposed
	}
	if !s.fresh {
		return s.pts, false, nil
	}
	if tex.Width() != s.width || tex.Height() != s.height {
		tex.Resize(s.width, s.height)
	}
	if err := tex.SetData(s.latest); err != nil {
		return 0, false, fmt.Errorf("latch surface: %w", err)
	}
	s.fresh = false
	return s.pts, true, nil
}

// Release frees the surface. Later renders fail with ErrDisposed.
func (s *Surface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.onFrame = nil
}

var _ ports.ExternalSurface = (*Surface)(nil)
