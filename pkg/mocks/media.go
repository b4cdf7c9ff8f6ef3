package mocks

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/supervideo/pkg/ports"
)

// Demuxer is a mock implementation of ports.Demuxer over a fixed sample list.
type Demuxer struct {
	mu  sync.Mutex
	pos int

	SourceValue ports.MediaSource
	Samples     []ports.CompressedSample

	ReadNextSampleFunc func() (ports.CompressedSample, error)
	CloseFunc          func() error

	Closed atomic.Int32
}

// NewDemuxer creates a mock demuxer with one sample per timestamp.
func NewDemuxer(source ports.MediaSource, timestamps ...time.Duration) *Demuxer {
	d := &Demuxer{SourceValue: source}
	for i, ts := range timestamps {
		d.Samples = append(d.Samples, ports.CompressedSample{
			Data:             []byte{byte(i)},
			PresentationTime: ts,
			Keyframe:         i == 0,
		})
	}
	return d
}

func (m *Demuxer) Source() ports.MediaSource {
	return m.SourceValue
}

func (m *Demuxer) ReadNextSample() (ports.CompressedSample, error) {
	if m.ReadNextSampleFunc != nil {
		return m.ReadNextSampleFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.Samples) {
		return ports.CompressedSample{EndOfStream: true}, nil
	}
	return m.Samples[m.pos], nil
}

func (m *Demuxer) Advance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos < len(m.Samples) {
		m.pos++
	}
	return m.pos < len(m.Samples)
}

func (m *Demuxer) Close() error {
	m.Closed.Add(1)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// DemuxerOpener is a mock implementation of ports.DemuxerOpener.
type DemuxerOpener struct {
	mu    sync.Mutex
	files map[string]func() *Demuxer

	OpenFunc func(path string) (ports.Demuxer, error)

	Opens atomic.Int32
}

// NewDemuxerOpener creates an opener with no registered files.
func NewDemuxerOpener() *DemuxerOpener {
	return &DemuxerOpener{files: make(map[string]func() *Demuxer)}
}

// Register makes path open a fresh demuxer built by fn.
func (m *DemuxerOpener) Register(path string, fn func() *Demuxer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = fn
}

func (m *DemuxerOpener) Open(path string) (ports.Demuxer, error) {
	m.Opens.Add(1)
	if m.OpenFunc != nil {
		return m.OpenFunc(path)
	}
	m.mu.Lock()
	fn, ok := m.files[path]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, path)
	}
	return fn(), nil
}

var (
	_ ports.Demuxer       = (*Demuxer)(nil)
	_ ports.DemuxerOpener = (*DemuxerOpener)(nil)
)
