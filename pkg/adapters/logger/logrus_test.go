package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/user/supervideo/pkg/ports"
)

func TestLogrusLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogrus(&buf, ports.LevelInfo, true).WithComponent("decoder")

	log.Debug("hidden %d", 1)
	log.Info("Decoder backend: %s (%s)", "ffmpeg", "video/avc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 entry, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}
	if entry["component"] != "decoder" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if msg, _ := entry["msg"].(string); !strings.Contains(msg, "ffmpeg") {
		t.Errorf("msg = %q", msg)
	}
}

func TestLogrusLoggerQuiet(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogrus(&buf, ports.LevelQuiet, false)
	log.Error("Decode loop failed: %v", "boom")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}
}

func TestNoopLogger(t *testing.T) {
	log := NewNoop()
	if log.WithComponent("x") != log {
		t.Error("WithComponent should return the same no-op logger")
	}
}
