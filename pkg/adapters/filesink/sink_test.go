package filesink

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/user/supervideo/pkg/mocks"
)

// testBaseDir is a platform-independent base directory for tests
var testBaseDir = filepath.Join("snapshots")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem())
	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 30, A: 255})
	if err := sink.SaveFrame(7, img); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "frames", "frame-00007.png")
	if sink.FramePath(7) != expectedPath {
		t.Errorf("FramePath = %s, want %s", sink.FramePath(7), expectedPath)
	}
	saved, ok := fs.GetFile(expectedPath)
	if !ok {
		t.Fatalf("expected file to be saved at %s", expectedPath)
	}
	decoded, err := png.Decode(bytes.NewReader(saved))
	if err != nil {
		t.Fatalf("saved frame is not a PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 4 || decoded.Bounds().Dy() != 2 {
		t.Errorf("decoded size = %v", decoded.Bounds())
	}
	r, _, _, _ := decoded.At(1, 1).RGBA()
	if r>>8 != 200 {
		t.Errorf("pixel red = %d, want 200", r>>8)
	}
}

func TestSink_SaveProbe(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	data := []byte("mime_type: video/avc\n")
	if err := sink.SaveProbe(data); err != nil {
		t.Fatalf("SaveProbe failed: %v", err)
	}
	saved, ok := fs.GetFile(filepath.Join(testBaseDir, "probe.yaml"))
	if !ok || string(saved) != string(data) {
		t.Errorf("probe not saved, got %q", saved)
	}
}
