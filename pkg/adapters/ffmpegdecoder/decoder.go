// Package ffmpegdecoder decodes H.264 Annex B access units by streaming
// them through a long-running ffmpeg process that emits raw yuv420p frames.
package ffmpegdecoder

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/user/supervideo/pkg/ports"
)

var (
	// ErrFFmpegNotFound is returned when no ffmpeg binary is available.
	ErrFFmpegNotFound = errors.New("ffmpegdecoder: ffmpeg not found in PATH")
	// ErrNotInitialized is returned when decoding before Init.
	ErrNotInitialized = errors.New("ffmpegdecoder: decoder not initialized")
	// ErrNoDimensions is returned when the stream has no declared size.
	ErrNoDimensions = errors.New("ffmpegdecoder: stream dimensions unknown")
)

// Options configures the decoder.
type Options struct {
	// FFmpegPath overrides the ffmpeg lookup.
	FFmpegPath string
}

// Decoder implements ports.FrameDecoder with an ffmpeg subprocess.
type Decoder struct {
	opts   Options
	logger ports.Logger

	width  int
	height int

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr lockedBuffer

	mu       sync.Mutex
	ready    []image.Image
	readErr  error
	readDone chan struct{}
}

// New creates an uninitialized decoder.
func New(opts Options, logger ports.Logger) *Decoder {
	return &Decoder{opts: opts, logger: logger}
}

// Init starts ffmpeg for a stream of the source's dimensions.
func (d *Decoder) Init(source ports.MediaSource) error {
	if source.MimeType != "video/avc" {
		return fmt.Errorf("%w: %s", ports.ErrUnsupportedCodec, source.MimeType)
	}
	if source.Width <= 0 || source.Height <= 0 {
		return ErrNoDimensions
	}
	path, err := findFFmpeg(d.opts.FFmpegPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrUnsupportedCodec, err)
	}

	d.width, d.height = source.Width, source.Height
	d.cmd = exec.Command(path,
		"-hide_banner",
		"-loglevel", "error",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-probesize", "32",
		"-analyzeduration", "0",
		"-f", "h264",
		"-i", "pipe:0",
		"-vf", "scale="+strconv.Itoa(d.width)+":"+strconv.Itoa(d.height),
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"pipe:1",
	)
	d.cmd.Stderr = &d.stderr

	d.stdin, err = d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	d.logger.Debug("Starting ffmpeg: %s", path)
	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	d.readDone = make(chan struct{})
	go d.readFrames(stdout)
	return nil
}

// readFrames collects yuv420p frames until ffmpeg closes its output.
func (d *Decoder) readFrames(r io.Reader) {
	defer close(d.readDone)
	rect := image.Rect(0, 0, d.width, d.height)
	for {
		img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)
		if _, err := io.ReadFull(r, img.Y); err != nil {
			if !errors.Is(err, io.EOF) {
				d.setReadErr(err)
			}
			return
		}
		if _, err := io.ReadFull(r, img.Cb); err != nil {
			d.setReadErr(err)
			return
		}
		if _, err := io.ReadFull(r, img.Cr); err != nil {
			d.setReadErr(err)
			return
		}
		d.mu.Lock()
		d.ready = append(d.ready, img)
		d.mu.Unlock()
	}
}

func (d *Decoder) setReadErr(err error) {
	d.mu.Lock()
	d.readErr = fmt.Errorf("read frame: %w", err)
	d.mu.Unlock()
}

func (d *Decoder) take() ([]image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.ready
	d.ready = nil
	return out, d.readErr
}

// Decode writes one access unit and returns the frames ffmpeg has produced so far.
func (d *Decoder) Decode(data []byte) ([]image.Image, error) {
	if d.cmd == nil {
		return nil, ErrNotInitialized
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write to ffmpeg: %w\nstderr: %s", err, d.stderr.String())
	}
	return d.take()
}

// Flush closes ffmpeg's input and waits for the remaining frames.
func (d *Decoder) Flush() ([]image.Image, error) {
	if d.cmd == nil {
		return nil, ErrNotInitialized
	}
	d.stdin.Close()
	<-d.readDone
	if err := d.cmd.Wait(); err != nil {
		d.logger.Debug("ffmpeg exited: %v", err)
	}
	frames, err := d.take()
	d.cmd = nil
	return frames, err
}

// Close stops ffmpeg if it is still running.
func (d *Decoder) Close() {
	if d.cmd == nil {
		return
	}
	d.stdin.Close()
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	<-d.readDone
	d.cmd.Wait()
	d.cmd = nil
}

var _ ports.FrameDecoder = (*Decoder)(nil)
