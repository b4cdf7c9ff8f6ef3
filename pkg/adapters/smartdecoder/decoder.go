// Package smartdecoder selects a decoding backend from the stream's codec
// and wraps it in a queue-based decoder session.
package smartdecoder

import (
	"fmt"

	"github.com/user/supervideo/pkg/adapters/av1decoder"
	"github.com/user/supervideo/pkg/adapters/codecsession"
	"github.com/user/supervideo/pkg/adapters/ffmpegdecoder"
	"github.com/user/supervideo/pkg/adapters/mp4demuxer"
	"github.com/user/supervideo/pkg/adapters/vp8decoder"
	"github.com/user/supervideo/pkg/ports"
)

// Backend represents the decoding backend used.
type Backend string

const (
	// BackendFFmpeg decodes through an ffmpeg child process.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendGo decodes in pure Go.
	BackendGo Backend = "go"
	// BackendLibaom decodes AV1 through cgo bindings to libaom.
	BackendLibaom Backend = "libaom"
)

// Info contains information about the selected decoder.
type Info struct {
	// Codec is the MIME type of the stream.
	Codec string
	// Backend is the decoding backend being used.
	Backend Backend
}

// Options configures the smart decoder behavior.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// InputSlots bounds the number of in-flight compressed samples.
	InputSlots int
}

// Factory implements ports.DecoderFactory.
type Factory struct {
	opts   Options
	logger ports.Logger

	// available reports whether ffmpeg can be used. Replaced in tests.
	available func(custom string) bool
	// av1 reports whether the libaom backend is compiled in.
	av1 bool
}

// NewFactory creates a decoder factory.
func NewFactory(opts Options, logger ports.Logger) *Factory {
	return &Factory{
		opts:      opts,
		logger:    logger.WithComponent("decoder"),
		available: ffmpegdecoder.IsAvailable,
		av1:       av1decoder.Available,
	}
}

// Select picks a backend for source without creating it.
func (f *Factory) Select(source ports.MediaSource) (Info, error) {
	info := Info{Codec: source.MimeType}
	switch source.MimeType {
	case mp4demuxer.MimeAVC:
		if !f.available(f.opts.FFmpegPath) {
			return info, fmt.Errorf("%w: %s (ffmpeg not found)", ports.ErrUnsupportedCodec, source.MimeType)
		}
		info.Backend = BackendFFmpeg
	case mp4demuxer.MimeVP8:
		info.Backend = BackendGo
	case mp4demuxer.MimeAV1:
		if !f.av1 {
			return info, fmt.Errorf("%w: %s (built without libaom)", ports.ErrUnsupportedCodec, source.MimeType)
		}
		info.Backend = BackendLibaom
	default:
		return info, fmt.Errorf("%w: %s", ports.ErrUnsupportedCodec, source.MimeType)
	}
	return info, nil
}

// NewSession creates an unconfigured session for source.
func (f *Factory) NewSession(source ports.MediaSource) (ports.DecoderSession, error) {
	info, err := f.Select(source)
	if err != nil {
		return nil, err
	}

	var backend ports.FrameDecoder
	switch info.Backend {
	case BackendFFmpeg:
		backend = ffmpegdecoder.New(ffmpegdecoder.Options{FFmpegPath: f.opts.FFmpegPath}, f.logger)
	case BackendLibaom:
		backend = av1decoder.New(f.logger)
	default:
		backend = vp8decoder.New(f.logger)
	}

	f.logger.Info("Decoder backend: %s (%s)", info.Codec, info.Backend)
	return codecsession.New(backend, f.logger, codecsession.Options{InputSlots: f.opts.InputSlots}), nil
}

// IsH264Available checks if H.264 decoding is available.
func IsH264Available(custom string) bool {
	return ffmpegdecoder.IsAvailable(custom)
}

var _ ports.DecoderFactory = (*Factory)(nil)
