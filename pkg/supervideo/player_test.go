package supervideo

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/supervideo/pkg/adapters/softgpu"
	"github.com/user/supervideo/pkg/mocks"
	"github.com/user/supervideo/pkg/output"
	"github.com/user/supervideo/pkg/playback"
	"github.com/user/supervideo/pkg/ports"
)

var clipSource = ports.MediaSource{MimeType: "video/avc", Width: 16, Height: 8, Duration: 3 * time.Second}

type harness struct {
	player   *Player
	opener   *mocks.DemuxerOpener
	decoders *mocks.DecoderFactory
	demuxers []*mocks.Demuxer
}

func newHarness(t *testing.T, kind output.Kind, timestamps ...time.Duration) *harness {
	t.Helper()
	if len(timestamps) == 0 {
		timestamps = []time.Duration{0, time.Second, 2 * time.Second}
	}
	dev, err := softgpu.NewDevice(32, 32)
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		opener:   mocks.NewDemuxerOpener(),
		decoders: mocks.NewDecoderFactory(clipSource.Width, clipSource.Height),
	}
	h.decoders.Luma = 128
	for _, path := range []string{"clip.mp4", "other.mp4"} {
		h.opener.Register(path, func() *mocks.Demuxer {
			d := mocks.NewDemuxer(clipSource, timestamps...)
			h.demuxers = append(h.demuxers, d)
			return d
		})
	}

	cfg := playback.DefaultConfig()
	cfg.InputTimeout = 5 * time.Millisecond
	cfg.OutputTimeout = 5 * time.Millisecond
	cfg.PausePoll = 5 * time.Millisecond
	h.player, err = New(Options{
		Device:   dev,
		Demuxers: h.opener,
		Decoders: h.decoders,
		Output:   kind,
		Playback: cfg,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(h.player.Dispose)
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (h *harness) waitPlaying(t *testing.T) {
	t.Helper()
	waitFor(t, "Playing", func() bool { return h.player.State() == Playing })
}

func TestPlayEmptyPath(t *testing.T) {
	h := newHarness(t, output.Planar)
	if err := h.player.Play(""); !errors.Is(err, ports.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if h.player.State() != Stopped {
		t.Errorf("state = %s, want Stopped", h.player.State())
	}
}

func TestPlayNoVideoTrack(t *testing.T) {
	h := newHarness(t, output.Planar)
	h.opener.OpenFunc = func(path string) (ports.Demuxer, error) {
		return nil, fmt.Errorf("%w: %s", ports.ErrNoVideoTrack, path)
	}
	err := h.player.Play("clip.mp4")
	if !errors.Is(err, ports.ErrNoVideoTrack) {
		t.Fatalf("expected ErrNoVideoTrack, got %v", err)
	}
	if !IsFatal(err) {
		t.Error("expected a fatal error")
	}
	if h.player.State() != Stopped || h.player.VideoPath() != "" {
		t.Errorf("state = %s, path = %q", h.player.State(), h.player.VideoPath())
	}
}

func TestPlayUnsupportedCodecReleasesDemuxer(t *testing.T) {
	h := newHarness(t, output.Planar)
	h.decoders.NewSessionFunc = func(ports.MediaSource) (ports.DecoderSession, error) {
		return nil, ports.ErrUnsupportedCodec
	}
	if err := h.player.Play("clip.mp4"); !errors.Is(err, ports.ErrUnsupportedCodec) {
		t.Fatalf("expected ErrUnsupportedCodec, got %v", err)
	}
	if h.demuxers[0].Closed.Load() != 1 {
		t.Errorf("demuxer closed %d times, want 1", h.demuxers[0].Closed.Load())
	}
	if h.player.State() != Stopped {
		t.Errorf("state = %s, want Stopped", h.player.State())
	}
}

func TestPlaceholderBeforePlay(t *testing.T) {
	h := newHarness(t, output.Planar)
	tex, err := h.player.GetTexture()
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width() != 1 || tex.Height() != 1 {
		t.Errorf("texture is %dx%d, want 1x1", tex.Width(), tex.Height())
	}
}

func TestGetTextureSizedToStream(t *testing.T) {
	for _, kind := range []output.Kind{output.Planar, output.Packed, output.Swizzle} {
		t.Run(string(kind), func(t *testing.T) {
			h := newHarness(t, kind)
			if err := h.player.Play("clip.mp4"); err != nil {
				t.Fatalf("Play failed: %v", err)
			}
			h.waitPlaying(t)
			tex, err := h.player.GetTexture()
			if err != nil {
				t.Fatalf("GetTexture failed: %v", err)
			}
			if tex.Width() != 16 || tex.Height() != 8 {
				t.Errorf("texture is %dx%d, want 16x8", tex.Width(), tex.Height())
			}
			if h.player.PlayPosition() != 0 {
				t.Errorf("position = %v, want 0", h.player.PlayPosition())
			}
			if h.player.Duration() != 3*time.Second {
				t.Errorf("duration = %v", h.player.Duration())
			}
		})
	}
}

func TestGetTextureIdempotent(t *testing.T) {
	h := newHarness(t, output.Planar)
	h.player.Play("clip.mp4")
	h.waitPlaying(t)

	first, _ := h.player.GetTexture()
	conversions := h.player.Stats().Conversions
	second, _ := h.player.GetTexture()
	if first != second {
		t.Error("expected the same texture")
	}
	if got := h.player.Stats().Conversions; got != conversions {
		t.Errorf("conversions = %d, want %d", got, conversions)
	}
}

func TestStopThenDisposeTwice(t *testing.T) {
	h := newHarness(t, output.Planar)
	h.player.Play("clip.mp4")
	h.player.Stop()
	h.player.Stop()
	if h.player.State() != Stopped {
		t.Errorf("state = %s, want Stopped", h.player.State())
	}
	h.player.Dispose()
	h.player.Dispose()

	sessions := h.decoders.Sessions()
	if len(sessions) != 1 || sessions[0].Released.Load() != 1 {
		t.Fatalf("expected one session released once, got %d sessions", len(sessions))
	}
	if h.demuxers[0].Closed.Load() != 1 {
		t.Errorf("demuxer closed %d times", h.demuxers[0].Closed.Load())
	}
	if !h.player.IsDisposed() {
		t.Error("expected disposed")
	}
	if _, err := h.player.GetTexture(); !errors.Is(err, ports.ErrDisposed) {
		t.Errorf("GetTexture after Dispose: %v", err)
	}
	if err := h.player.Play("clip.mp4"); !errors.Is(err, ports.ErrDisposed) {
		t.Errorf("Play after Dispose: %v", err)
	}
}

func TestPauseResumeKeepsSession(t *testing.T) {
	h := newHarness(t, output.Planar)
	h.player.Play("clip.mp4")
	h.waitPlaying(t)
	id := h.player.SessionID()

	h.player.Pause()
	if h.player.State() != Paused {
		t.Errorf("state = %s, want Paused", h.player.State())
	}
	if err := h.player.Resume(); err != nil {
		t.Fatal(err)
	}
	if h.player.State() != Playing {
		t.Errorf("state = %s, want Playing", h.player.State())
	}
	if h.player.SessionID() != id || h.player.VideoPath() != "clip.mp4" {
		t.Error("pause and resume recreated the session")
	}
	if h.opener.Opens.Load() != 1 {
		t.Errorf("opens = %d, want 1", h.opener.Opens.Load())
	}
}

func TestPlaySamePathIsNoop(t *testing.T) {
	h := newHarness(t, output.Planar)
	h.player.Play("clip.mp4")
	h.waitPlaying(t)
	id := h.player.SessionID()

	if err := h.player.Play("clip.mp4"); err != nil {
		t.Fatal(err)
	}
	if h.player.SessionID() != id || len(h.decoders.Sessions()) != 1 {
		t.Error("Play of the same path recreated the session")
	}

	h.player.Pause()
	h.player.Play("clip.mp4")
	if h.player.State() != Playing || h.player.SessionID() != id {
		t.Errorf("Play on paused path: state %s", h.player.State())
	}
}

func TestPlayOtherPathReplacesSession(t *testing.T) {
	h := newHarness(t, output.Planar)
	h.player.Play("clip.mp4")
	id := h.player.SessionID()
	if err := h.player.Play("other.mp4"); err != nil {
		t.Fatal(err)
	}
	if h.player.SessionID() == id || h.player.VideoPath() != "other.mp4" {
		t.Error("expected a new session for another path")
	}
	if h.decoders.Sessions()[0].Released.Load() != 1 {
		t.Error("previous decoder not released")
	}
}

func TestResumeWithoutPath(t *testing.T) {
	h := newHarness(t, output.Planar)
	if err := h.player.Resume(); err != nil {
		t.Fatal(err)
	}
	if h.player.State() != Stopped || h.opener.Opens.Load() != 0 {
		t.Error("Resume without a path must do nothing")
	}
	h.player.Pause()
	if h.player.State() != Stopped {
		t.Error("Pause without a session must do nothing")
	}
}

func TestResumeAfterStopReplays(t *testing.T) {
	h := newHarness(t, output.Planar)
	h.player.Play("clip.mp4")
	id := h.player.SessionID()
	h.player.Stop()
	if err := h.player.Resume(); err != nil {
		t.Fatal(err)
	}
	if h.player.SessionID() == id || h.player.SessionID() == 0 {
		t.Error("expected a new session")
	}
	h.waitPlaying(t)
}

func TestEndOfStreamStops(t *testing.T) {
	h := newHarness(t, output.Planar, 0, 10*time.Millisecond)
	h.player.Play("clip.mp4")
	select {
	case <-h.player.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish")
	}
	if h.player.State() != Stopped {
		t.Errorf("state = %s, want Stopped", h.player.State())
	}
	if h.player.Err() != nil {
		t.Errorf("unexpected error %v", h.player.Err())
	}
	if s := h.player.Stats(); s.Presented != 2 || s.Handoff.Published != 2 {
		t.Errorf("stats = %+v", s)
	}
	if h.player.PlayPosition() != 10*time.Millisecond {
		t.Errorf("position = %v", h.player.PlayPosition())
	}
}

func TestDecoderFaultStops(t *testing.T) {
	h := newHarness(t, output.Planar)
	h.decoders.NewSessionFunc = func(ports.MediaSource) (ports.DecoderSession, error) {
		s := mocks.NewDecoderSession(16, 8)
		s.TryAcquireOutputFrameFunc = func(time.Duration) (*ports.OutputFrame, error) {
			return nil, errors.New("hardware gone")
		}
		return s, nil
	}
	if err := h.player.Play("clip.mp4"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitFor(t, "Stopped", func() bool { return h.player.State() == Stopped })
	if !errors.Is(h.player.Err(), ports.ErrDecoderFault) {
		t.Errorf("expected ErrDecoderFault, got %v", h.player.Err())
	}
}

func TestStateStrings(t *testing.T) {
	if Stopped.String() != "Stopped" || Paused.String() != "Paused" || Playing.String() != "Playing" {
		t.Error("unexpected state names")
	}
}

func TestQueriesStayFastDuringStop(t *testing.T) {
	h := newHarness(t, output.Planar)
	const poll = 300 * time.Millisecond
	var polls atomic.Int32
	var slow *mocks.DecoderSession
	h.decoders.NewSessionFunc = func(source ports.MediaSource) (ports.DecoderSession, error) {
		slow = mocks.NewDecoderSession(source.Width, source.Height)
		slow.TryAcquireOutputFrameFunc = func(time.Duration) (*ports.OutputFrame, error) {
			polls.Add(1)
			time.Sleep(poll)
			return nil, nil
		}
		return slow, nil
	}
	if err := h.player.Play("clip.mp4"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitFor(t, "a decoder wait", func() bool { return polls.Load() > 0 })

	stopped := make(chan struct{})
	go func() {
		h.player.Stop()
		close(stopped)
	}()

	var slowest time.Duration
	for {
		start := time.Now()
		state := h.player.State()
		h.player.PlayPosition()
		h.player.Stats()
		if d := time.Since(start); d > slowest {
			slowest = d
		}
		if state == Stopped {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if slowest > poll/3 {
		t.Errorf("queries blocked for %v during Stop", slowest)
	}

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	if got := slow.Released.Load(); got != 1 {
		t.Errorf("released = %d, want 1", got)
	}
}
