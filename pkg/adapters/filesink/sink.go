// Package filesink provides a file-based frame sink implementation.
package filesink

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"

	"github.com/user/supervideo/pkg/ports"
)

// Sink saves presented frames as PNG files.
type Sink struct {
	baseDir string
	fs      ports.FileSystem
}

// New creates a new file sink writing under baseDir.
func New(baseDir string, fs ports.FileSystem) *Sink {
	return &Sink{
		baseDir: baseDir,
		fs:      fs,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// FramePath returns the file a frame sequence is written to.
func (s *Sink) FramePath(sequence uint64) string {
	return filepath.Join(s.baseDir, "frames", fmt.Sprintf("frame-%05d.png", sequence))
}

// SaveFrame saves a presented frame.
func (s *Sink) SaveFrame(sequence uint64, img image.Image) error {
	if err := s.fs.MkdirAll(filepath.Join(s.baseDir, "frames")); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return s.fs.WriteFile(s.FramePath(sequence), buf.Bytes())
}

// SaveProbe saves the media description.
func (s *Sink) SaveProbe(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "probe.yaml"), data)
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
