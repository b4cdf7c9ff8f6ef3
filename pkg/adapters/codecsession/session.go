// Package codecsession exposes a synchronous frame decoder through the
// queue-based decoder session protocol: a fixed set of input slots, a
// worker that decodes submitted samples, and an output queue of frames.
package codecsession

import (
	"container/heap"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/user/supervideo/pkg/ports"
)

// DefaultInputSlots is the number of input buffers when Options leaves it unset.
const DefaultInputSlots = 4

var (
	// ErrNotConfigured is returned by Start before Configure.
	ErrNotConfigured = errors.New("codecsession: not configured")
	// ErrReleased is returned by calls on a released session.
	ErrReleased = errors.New("codecsession: released")
)

// Options configures a session.
type Options struct {
	InputSlots int
}

type input struct {
	slot ports.InputSlot
	data []byte
	pts  time.Duration
	eos  bool
}

// Session implements ports.DecoderSession over a ports.FrameDecoder.
type Session struct {
	backend ports.FrameDecoder
	logger  ports.Logger
	slots   int

	mu         sync.Mutex
	target     ports.OutputSurface
	configured bool
	started    bool
	released   bool
	fault      error

	free    chan ports.InputSlot
	inputs  chan input
	outputs chan *ports.OutputFrame
	failed  chan struct{}
	quit    chan struct{}
	done    chan struct{}

	stopOnce    sync.Once
	releaseOnce sync.Once
	failOnce    sync.Once

	// worker-owned
	pending ptsHeap
	lastPTS time.Duration
	index   int
}

// New wraps backend in a queue session.
func New(backend ports.FrameDecoder, logger ports.Logger, opts Options) *Session {
	slots := opts.InputSlots
	if slots <= 0 {
		slots = DefaultInputSlots
	}
	s := &Session{
		backend: backend,
		logger:  logger,
		slots:   slots,
		free:    make(chan ports.InputSlot, slots),
		inputs:  make(chan input, slots),
		outputs: make(chan *ports.OutputFrame, slots),
		failed:  make(chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for i := 0; i < slots; i++ {
		s.free <- ports.InputSlot(i)
	}
	return s
}

// Configure initializes the backend for source and remembers the output target.
func (s *Session) Configure(source ports.MediaSource, target ports.OutputSurface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrReleased
	}
	if err := s.backend.Init(source); err != nil {
		return fmt.Errorf("configure %s: %w", source.MimeType, err)
	}
	s.target = target
	s.configured = true
	return nil
}

// Start launches the decode worker.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.released:
		return ErrReleased
	case !s.configured:
		return ErrNotConfigured
	case s.started:
		return nil
	}
	s.started = true
	go s.work()
	return nil
}

// TryAcquireInputSlot waits up to timeout for a free input buffer.
func (s *Session) TryAcquireInputSlot(timeout time.Duration) (ports.InputSlot, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case slot := <-s.free:
		return slot, true
	case <-s.quit:
		return 0, false
	case <-timer.C:
		return 0, false
	}
}

// SubmitInput queues a sample for the worker. The data is copied.
func (s *Session) SubmitInput(slot ports.InputSlot, data []byte, pts time.Duration, endOfStream bool) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	select {
	case s.inputs <- input{slot: slot, data: buf, pts: pts, eos: endOfStream}:
		return nil
	case <-s.quit:
		return ErrReleased
	}
}

// TryAcquireOutputFrame waits up to timeout for a decoded frame.
func (s *Session) TryAcquireOutputFrame(timeout time.Duration) (*ports.OutputFrame, error) {
	select {
	case frame := <-s.outputs:
		return frame, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case frame := <-s.outputs:
		return frame, nil
	case <-s.failed:
		return nil, s.Err()
	case <-timer.C:
		return nil, nil
	}
}

// ReleaseOutputFrame forwards the frame to the output target when render is set.
func (s *Session) ReleaseOutputFrame(frame *ports.OutputFrame, render bool) error {
	if frame == nil || !render || frame.Image == nil {
		return nil
	}
	s.mu.Lock()
	target := s.target
	s.mu.Unlock()
	if target == nil {
		return nil
	}
	return target.Render(frame.Image, frame.PresentationTime)
}

// Err returns the fault that stopped the worker.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// Stop terminates the worker and waits for it.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		close(s.quit)
	})
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
	return nil
}

// Release stops the session and closes the backend once.
func (s *Session) Release() {
	s.releaseOnce.Do(func() {
		s.Stop()
		s.mu.Lock()
		s.released = true
		s.mu.Unlock()
		s.backend.Close()
	})
}

func (s *Session) fail(err error) {
	s.failOnce.Do(func() {
		s.mu.Lock()
		s.fault = fmt.Errorf("%w: %v", ports.ErrDecoderFault, err)
		s.mu.Unlock()
		s.logger.Debug("Decoder backend failed: %v", err)
		close(s.failed)
	})
}

func (s *Session) work() {
	defer close(s.done)
	for {
		var in input
		select {
		case <-s.quit:
			return
		case in = <-s.inputs:
		}

		var frames []image.Image
		var err error
		if in.eos {
			frames, err = s.backend.Flush()
		} else {
			heap.Push(&s.pending, in.pts)
			frames, err = s.backend.Decode(in.data)
		}
		s.returnSlot(in.slot)
		if err != nil {
			s.fail(err)
			return
		}
		for _, img := range frames {
			if !s.emit(s.frameFor(img)) {
				return
			}
		}
		if in.eos {
			s.emit(&ports.OutputFrame{Index: s.next(), PresentationTime: s.lastPTS, EndOfStream: true})
			return
		}
	}
}

func (s *Session) returnSlot(slot ports.InputSlot) {
	select {
	case s.free <- slot:
	default:
	}
}

// frameFor pairs a decoded image with the smallest outstanding timestamp,
// which restores display order for streams with reordered frames.
func (s *Session) frameFor(img image.Image) *ports.OutputFrame {
	pts := s.lastPTS
	if s.pending.Len() > 0 {
		pts = heap.Pop(&s.pending).(time.Duration)
	}
	s.lastPTS = pts
	b := img.Bounds()
	return &ports.OutputFrame{
		Index:            s.next(),
		PresentationTime: pts,
		Width:            b.Dx(),
		Height:           b.Dy(),
		Image:            img,
	}
}

func (s *Session) next() int {
	i := s.index
	s.index++
	return i
}

func (s *Session) emit(frame *ports.OutputFrame) bool {
	select {
	case s.outputs <- frame:
		return true
	case <-s.quit:
		return false
	}
}

type ptsHeap []time.Duration

func (h ptsHeap) Len() int            { return len(h) }
func (h ptsHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h ptsHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *ptsHeap) Push(x interface{}) { *h = append(*h, x.(time.Duration)) }
func (h *ptsHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

var _ ports.DecoderSession = (*Session)(nil)
