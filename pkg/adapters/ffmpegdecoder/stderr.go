package ffmpegdecoder

import (
	"bytes"
	"sync"
)

// lockedBuffer collects ffmpeg's stderr. exec copies into it from its own
// goroutine while decode errors read it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
