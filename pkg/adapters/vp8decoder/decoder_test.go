package vp8decoder

import (
	"errors"
	"image"
	"testing"

	"github.com/user/supervideo/pkg/adapters/logger"
	"github.com/user/supervideo/pkg/ports"
)

func TestInitRejectsOtherCodecs(t *testing.T) {
	d := New(logger.NewNoop())
	if err := d.Init(ports.MediaSource{MimeType: "video/avc"}); !errors.Is(err, ports.ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}

func TestDecodeBeforeInit(t *testing.T) {
	d := New(logger.NewNoop())
	if _, err := d.Decode([]byte{0}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestInterFrameWithoutKeyFrame(t *testing.T) {
	d := New(logger.NewNoop())
	d.Init(ports.MediaSource{MimeType: Mime})
	frames, err := d.Decode([]byte{0x01, 0, 0})
	if err != nil || len(frames) != 0 {
		t.Errorf("inter frame = %d frames, %v", len(frames), err)
	}
}

func TestInterFrameRepeatsKeyFrame(t *testing.T) {
	d := New(logger.NewNoop())
	d.Init(ports.MediaSource{MimeType: Mime})
	d.last = image.NewYCbCr(image.Rect(0, 0, 2, 2), image.YCbCrSubsampleRatio420)
	frames, err := d.Decode([]byte{0x01})
	if err != nil || len(frames) != 1 || frames[0] != d.last {
		t.Errorf("expected the held key frame, got %d frames, %v", len(frames), err)
	}
}

func TestCorruptKeyFrame(t *testing.T) {
	d := New(logger.NewNoop())
	d.Init(ports.MediaSource{MimeType: Mime})
	if _, err := d.Decode([]byte{0x00, 0x01}); err == nil {
		t.Error("expected an error for a truncated key frame")
	}
}

func TestCloneYCbCr(t *testing.T) {
	src := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	src.Y[0] = 9
	dst := cloneYCbCr(src)
	src.Y[0] = 1
	if dst.Y[0] != 9 {
		t.Error("clone shares storage with source")
	}
}
