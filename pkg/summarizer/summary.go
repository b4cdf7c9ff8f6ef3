// Package summarizer builds reports describing a finished playback session.
package summarizer

import "time"

// Summary contains the data collected during one playback session.
type Summary struct {
	GeneratedAt time.Time

	Video    VideoInfo
	Settings Settings
	Playback PlaybackInfo
	Handoff  HandoffInfo

	// Error is the session's terminal error, empty on a clean finish.
	Error string
}

// VideoInfo describes the played track.
type VideoInfo struct {
	Path     string
	MimeType string
	Width    int
	Height   int
	Duration time.Duration
}

// Settings contains the playback configuration.
type Settings struct {
	OutputStrategy string
	FrameSkip      bool
	RenderWidth    int
	RenderHeight   int
	FPS            float64
}

// PlaybackInfo contains decode worker counters.
type PlaybackInfo struct {
	Decoded   uint64
	Presented uint64
	Skipped   uint64
	Backwards uint64
	Slept     time.Duration
	Position  time.Duration
	Elapsed   time.Duration
}

// HandoffInfo contains frame slot and conversion counters.
type HandoffInfo struct {
	Published     uint64
	Overwritten   uint64
	Notifications uint64
	Conversions   uint64
	SavedFrames   uint64
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithVideo sets track information.
func (b *Builder) WithVideo(video VideoInfo) *Builder {
	b.summary.Video = video
	return b
}

// WithSettings sets playback settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithPlayback sets decode worker counters.
func (b *Builder) WithPlayback(playback PlaybackInfo) *Builder {
	b.summary.Playback = playback
	return b
}

// WithHandoff sets slot counters.
func (b *Builder) WithHandoff(handoff HandoffInfo) *Builder {
	b.summary.Handoff = handoff
	return b
}

// WithError records the terminal error. A nil error clears it.
func (b *Builder) WithError(err error) *Builder {
	if err == nil {
		b.summary.Error = ""
		return b
	}
	b.summary.Error = err.Error()
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}

// SkipRate returns the share of decoded frames that were skipped.
func (s *Summary) SkipRate() float64 {
	if s.Playback.Decoded == 0 {
		return 0
	}
	return float64(s.Playback.Skipped) / float64(s.Playback.Decoded)
}
