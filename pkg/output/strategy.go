// Package output turns decoded frames into drawable textures.
//
// A Strategy has two sides. Present runs on the decode worker: it releases
// the decoder's output frame and publishes it into the handoff slot.
// Texture runs on the render loop: it materializes the newest published
// frame into a texture, and returns the cached texture when nothing new
// arrived. Before the first frame Texture returns the placeholder.
package output

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/user/supervideo/pkg/handoff"
	"github.com/user/supervideo/pkg/ports"
)

// Strategy is one output representation.
type Strategy interface {
	Kind() Kind

	// Surface is the decoder output target, or nil when the decoder
	// exposes raw bytes.
	Surface() ports.OutputSurface

	// Present releases frame to session and publishes it.
	Present(session ports.DecoderSession, frame *ports.OutputFrame) error

	// Texture returns the texture for the latest published frame.
	Texture() (ports.Texture, error)

	// Conversions counts GPU passes and uploads performed by Texture.
	Conversions() uint64

	// Dispose frees GPU resources on the device context.
	Dispose()
}

// Options are the collaborators of a strategy.
type Options struct {
	Device ports.GraphicsDevice
	Slot   *handoff.Slot
	// Placeholder is returned before the first frame.
	Placeholder ports.Texture
	// Converter is required by the planar strategy.
	Converter ports.ColorConverter
	Logger    ports.Logger
}

// New creates the strategy of kind for source.
func New(kind Kind, source ports.MediaSource, opts Options) (Strategy, error) {
	if opts.Device == nil || opts.Slot == nil || opts.Placeholder == nil {
		return nil, fmt.Errorf("%w: output strategy needs a device, a slot and a placeholder", ports.ErrInvalidArgument)
	}
	switch kind.Resolve() {
	case Packed:
		return newSurfaceStrategy(Packed, source, opts)
	case Swizzle:
		return newSurfaceStrategy(Swizzle, source, opts)
	case Planar:
		if opts.Converter == nil {
			return nil, fmt.Errorf("%w: planar output needs a color converter", ports.ErrInvalidArgument)
		}
		return newPlanarStrategy(opts), nil
	default:
		return nil, fmt.Errorf("%w: output strategy %q", ports.ErrInvalidArgument, kind)
	}
}

// NewPlaceholder creates the 1x1 opaque black texture shown before the
// first frame. It must run on the device context.
func NewPlaceholder(dev ports.GraphicsDevice) (ports.Texture, error) {
	tex, err := dev.NewTexture(1, 1, ports.Color)
	if err != nil {
		return nil, fmt.Errorf("create placeholder: %w", err)
	}
	if err := tex.SetData([]byte{0, 0, 0, 255}); err != nil {
		tex.Dispose()
		return nil, fmt.Errorf("fill placeholder: %w", err)
	}
	return tex, nil
}

// errUnchanged is returned by a materialize function that found nothing new
// to convert. The cached texture stays current and no conversion is counted.
var errUnchanged = errors.New("output: nothing new to convert")

// cache is the consumer side shared by every strategy.
type cache struct {
	kind   Kind
	dev    ports.GraphicsDevice
	slot   *handoff.Slot
	logger ports.Logger

	mu          sync.Mutex
	cursor      handoff.Cursor
	current     ports.Texture
	placeholder ports.Texture
	conversions atomic.Uint64
}

func newCache(kind Kind, opts Options) cache {
	return cache{
		kind:        kind,
		dev:         opts.Device,
		slot:        opts.Slot,
		logger:      opts.Logger.WithComponent("output"),
		placeholder: opts.Placeholder,
	}
}

func (c *cache) Kind() Kind { return c.kind }

func (c *cache) Conversions() uint64 { return c.conversions.Load() }

// texture materializes the newest frame with fn, or returns the cached one.
func (c *cache) texture(fn func(f *handoff.Frame) (ports.Texture, error)) (ports.Texture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.slot.MaterializeIfNewer(&c.cursor)
	if !ok {
		return c.fallback(), nil
	}
	defer f.Release()

	tex, err := fn(f)
	if errors.Is(err, errUnchanged) {
		return c.fallback(), nil
	}
	if err != nil {
		c.logger.Warn("Conversion failed: %v", err)
		return c.fallback(), err
	}
	c.conversions.Add(1)
	c.current = tex
	return tex, nil
}

func (c *cache) fallback() ports.Texture {
	if c.current != nil {
		return c.current
	}
	return c.placeholder
}

// invoke runs fn on the device context and returns its result.
func (c *cache) invoke(fn func() (ports.Texture, error)) (ports.Texture, error) {
	var (
		tex ports.Texture
		err error
	)
	c.dev.Invoke(func() { tex, err = fn() })
	return tex, err
}

func disposeAll(textures ...ports.Texture) {
	for _, t := range textures {
		if t != nil {
			t.Dispose()
		}
	}
}
