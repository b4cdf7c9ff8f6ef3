package osfilesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/supervideo/pkg/ports"
)

func TestWriteThenRead(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "snapshots", "frame_0001.png")

	if err := fs.WriteFile(path, []byte("png")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("data = %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != filePerm {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
}

func TestWriteReplaces(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "probe.yaml")
	fs.WriteFile(path, []byte("first"))
	fs.WriteFile(path, []byte("second"))

	data, _ := fs.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("data = %q", data)
	}
}

func TestOpenSeeks(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	fs.WriteFile(path, []byte("0123456789"))

	f, err := fs.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	if _, err := f.Seek(6, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	rest, _ := io.ReadAll(f)
	if string(rest) != "6789" {
		t.Errorf("rest = %q", rest)
	}
}

func TestMissingPaths(t *testing.T) {
	fs := New()
	missing := filepath.Join(t.TempDir(), "missing.mp4")

	if _, err := fs.Open(missing); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Open() = %v, want ErrNotFound", err)
	}
	if _, err := fs.ReadFile(missing); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("ReadFile() = %v, want ErrNotFound", err)
	}
	if err := fs.Remove(missing); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Remove() = %v, want ErrNotFound", err)
	}
	if ok, err := fs.Exists(missing); ok || err != nil {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
}

func TestOpenDirectory(t *testing.T) {
	fs := New()
	if _, err := fs.Open(t.TempDir()); !errors.Is(err, ports.ErrInvalidArgument) {
		t.Errorf("Open(dir) = %v, want ErrInvalidArgument", err)
	}
}

func TestMkdirAllAndRemove(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := fs.MkdirAll(dir); err != nil {
		t.Fatal(err)
	}
	if ok, _ := fs.Exists(dir); !ok {
		t.Fatal("directory not created")
	}
	if err := fs.Remove(dir); err != nil {
		t.Fatal(err)
	}
	if ok, _ := fs.Exists(dir); ok {
		t.Error("directory not removed")
	}
}
