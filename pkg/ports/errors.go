package ports

import "errors"

// Error taxonomy shared by every component. Adapters wrap these with
// fmt.Errorf("...: %w", ...) so callers can match with errors.Is.
var (
	// ErrInvalidArgument is returned for malformed caller input, such as an empty path.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a media file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoVideoTrack is returned when a container has no track whose type begins with "video/".
	ErrNoVideoTrack = errors.New("no video track")

	// ErrUnsupportedCodec is returned when no decoder exists for the stream's codec.
	ErrUnsupportedCodec = errors.New("unsupported codec")

	// ErrPlatformNotReady is returned when a transport control runs before the player has initialized.
	ErrPlatformNotReady = errors.New("platform not ready")

	// ErrDecoderFault is an unexpected decoder or demuxer failure mid-stream.
	ErrDecoderFault = errors.New("decoder fault")

	// ErrEndOfStream signals that a demuxer has no more samples.
	ErrEndOfStream = errors.New("end of stream")

	// ErrFrameDropped is returned by an output path that released a frame
	// without publishing it. The decode worker counts it as skipped.
	ErrFrameDropped = errors.New("frame dropped")

	// ErrDisposed is returned by operations on a disposed object.
	ErrDisposed = errors.New("disposed")
)
