package ports

import "time"

// MediaSource describes the selected video track of an opened container.
// It is immutable for the lifetime of a playback session.
type MediaSource struct {
	// TrackIndex is the zero-based position of the track in the container.
	TrackIndex int
	// TrackID is the container-level track identifier.
	TrackID uint32
	// MimeType is the codec identifier, e.g. "video/avc".
	MimeType string
	Width    int
	Height   int
	Duration time.Duration
	// Timescale is the number of media time units per second.
	Timescale uint32
}

// CompressedSample is one encoded access unit read from a demuxer.
type CompressedSample struct {
	Data             []byte
	PresentationTime time.Duration
	EndOfStream      bool
	Keyframe         bool
}

// Demuxer exposes strictly forward, sequential sample reads from one track.
type Demuxer interface {
	// Source returns the selected track description.
	Source() MediaSource

	// ReadNextSample returns the sample at the read position without
	// advancing. Past the last sample it returns a sample with
	// EndOfStream set and a nil error.
	ReadNextSample() (CompressedSample, error)

	// Advance moves to the next sample and reports whether one exists.
	Advance() bool

	// Close releases the underlying file.
	Close() error
}

// DemuxerOpener opens containers by path.
type DemuxerOpener interface {
	// Open fails with ErrNotFound or ErrNoVideoTrack.
	Open(path string) (Demuxer, error)
}
