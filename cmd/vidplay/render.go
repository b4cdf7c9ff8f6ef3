package main

import (
	"image"
	"image/color"
	"os"
	"time"

	"github.com/user/supervideo/pkg/ports"
	"github.com/user/supervideo/pkg/supervideo"
)

// renderer is a fixed-rate render loop drawing the player's texture into
// the device back buffer.
type renderer struct {
	dev        ports.GraphicsDevice
	player     *supervideo.Player
	sink       ports.FrameSink
	log        ports.Logger
	background color.Color
	// batch is created on the first draw and reused.
	batch ports.SpriteBatch

	last    ports.Texture
	lastPos time.Duration
	saved   uint64
	stats   supervideo.Stats
}

func (r *renderer) run(interval, limit time.Duration, stop <-chan os.Signal) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		deadline = timer.C
	}
	done := r.player.Done()

	for {
		select {
		case <-stop:
			r.log.Warn("Interrupted, shutting down...")
			return
		case <-deadline:
			return
		case <-done:
			r.tick()
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

// tick draws one frame. It redraws only when the texture or position changed.
func (r *renderer) tick() {
	tex, err := r.player.GetTexture()
	if err != nil {
		r.log.Warn("Frame dropped: %v", err)
		return
	}
	r.stats = r.player.Stats()
	pos := r.player.PlayPosition()
	if tex == r.last && pos == r.lastPos {
		return
	}
	r.last, r.lastPos = tex, pos

	vp := r.dev.Viewport()
	dst := fitRect(tex.Width(), tex.Height(), vp.Bounds())
	r.dev.Invoke(func() {
		r.dev.SetRenderTarget(nil)
		if bb, ok := r.dev.(interface{ BackBuffer() ports.RenderTarget }); ok {
			bb.BackBuffer().Clear(r.background)
		}
		if r.batch == nil {
			r.batch = r.dev.NewSpriteBatch()
		}
		r.batch.Begin(ports.Opaque, nil)
		r.batch.Draw(tex, dst, color.White)
		if err := r.batch.End(); err != nil {
			r.log.Warn("Frame dropped: %v", err)
		}
	})

	if !r.sink.Enabled() {
		return
	}
	if snap, ok := r.dev.(interface{ Snapshot() *image.RGBA }); ok {
		r.saved++
		if err := r.sink.SaveFrame(r.saved, snap.Snapshot()); err != nil {
			r.log.Warn("Frame dropped: %v", err)
			return
		}
		if fp, ok := r.sink.(interface{ FramePath(uint64) string }); ok {
			r.log.Debug("Saved frame %d to %s", r.saved, fp.FramePath(r.saved))
		}
	}
}

// fitRect centers a w x h image inside bounds keeping its aspect ratio.
func fitRect(w, h int, bounds image.Rectangle) image.Rectangle {
	if w <= 0 || h <= 0 || bounds.Empty() {
		return bounds
	}
	bw, bh := bounds.Dx(), bounds.Dy()
	dw, dh := bw, bw*h/w
	if dh > bh {
		dw, dh = bh*w/h, bh
	}
	x := bounds.Min.X + (bw-dw)/2
	y := bounds.Min.Y + (bh-dh)/2
	return image.Rect(x, y, x+dw, y+dh)
}
