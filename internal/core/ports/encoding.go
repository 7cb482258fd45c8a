package ports

import (
	"context"

	"screenpipe/internal/core/domain"
)

// MediaWriter is the container writer owned by an encoding session. Tracks
// are added before any sample is written; AddVideoTrack/AddAudioTrack report
// setup failures before the first sample is accepted.
type MediaWriter interface {
	AddVideoTrack(profile domain.QualityProfile) error
	AddAudioTrack() error

	// Ready reports whether the writer can accept another sample without
	// blocking the caller.
	Ready() bool

	// WriteSample appends one sample with an origin-relative PTS.
	WriteSample(sample domain.FrameSample) error

	// Finish flushes and closes the container, returning the number of bytes
	// durably written and the writer's real status.
	Finish() (int64, error)
}

// BufferedWriter is implemented by in-memory writers (the screenshot path)
// whose finished output is returned to the caller instead of a file.
type BufferedWriter interface {
	Bytes() []byte
}

// WriterFactory constructs the container writer for a session.
type WriterFactory interface {
	NewWriter(kind domain.SessionKind, profile domain.QualityProfile, still domain.StillProfile, destination string) (MediaWriter, error)
}

// Optimizer runs the optional post-processing pass over a finished recording.
// Implementations must never destroy the original before the replacement is
// confirmed complete.
type Optimizer interface {
	Optimize(ctx context.Context, path string) error
}
