package services

import (
	"fmt"
	"sync"
	"time"

	"screenpipe/internal/core/domain"
	"screenpipe/internal/core/ports"

	"go.uber.org/zap"
)

// EncodingSession owns the lifecycle of the container writer for one capture
// session. Append runs on the delivery thread, Finish on session-control
// context; the mutex guarantees they never interleave, which would corrupt
// the container's trailing index.
type EncodingSession struct {
	mu sync.Mutex

	writer   ports.MediaWriter
	hasAudio bool

	started  bool
	finished bool
	origin   time.Duration

	bytesWritten int64

	logger *zap.SugaredLogger
}

// OpenEncodingSession constructs the container writer inputs: video always,
// audio iff requested. Track setup failures surface here, before any sample
// is accepted.
func OpenEncodingSession(writer ports.MediaWriter, profile domain.QualityProfile, includeAudio bool, logger *zap.SugaredLogger) (*EncodingSession, error) {
	if err := writer.AddVideoTrack(profile); err != nil {
		return nil, fmt.Errorf("%w: add video track: %v", domain.ErrSetupFailed, err)
	}
	if includeAudio {
		if err := writer.AddAudioTrack(); err != nil {
			return nil, fmt.Errorf("%w: add audio track: %v", domain.ErrSetupFailed, err)
		}
	}

	return &EncodingSession{
		writer:   writer,
		hasAudio: includeAudio,
		logger:   logger,
	}, nil
}

// StartSession anchors the writing session at the capture-clock origin. It
// must be called exactly once, lazily, by the first accepted video sample.
func (e *EncodingSession) StartSession(origin time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		e.logger.DPanicw("encoding session started twice", "origin", origin)
		return fmt.Errorf("encoding session already started")
	}
	if e.finished {
		return fmt.Errorf("encoding session already finished")
	}

	e.started = true
	e.origin = origin
	return nil
}

// Writer exposes the underlying container writer, e.g. to read back an
// in-memory still image after Finish.
func (e *EncodingSession) Writer() ports.MediaWriter {
	return e.writer
}

// HasAudio reports whether an audio input was configured for this session.
func (e *EncodingSession) HasAudio() bool {
	return e.hasAudio
}

// Ready reports whether the writer can take another sample without blocking.
func (e *EncodingSession) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.finished {
		return false
	}
	return e.writer.Ready()
}

// Append writes one origin-relative sample and reports whether it was
// accepted. The caller is responsible for counting rejections. Appending
// before StartSession is a contract violation.
func (e *EncodingSession) Append(sample domain.FrameSample) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		e.logger.DPanicw("append before session start", "kind", sample.Kind, "pts", sample.PTS)
		return false
	}
	if e.finished {
		return false
	}
	if sample.Kind == domain.SampleAudio && !e.hasAudio {
		return false
	}
	if !e.writer.Ready() {
		return false
	}

	if err := e.writer.WriteSample(sample); err != nil {
		e.logger.Warnw("sample write failed", "kind", sample.Kind, "pts", sample.PTS, "error", err)
		return false
	}
	return true
}

// Finish marks all inputs finished, flushes and closes the container. It
// reports the writer's real status and the bytes durably written. A second
// call is a no-op returning the previous byte count.
func (e *EncodingSession) Finish() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return e.bytesWritten, nil
	}
	e.finished = true

	bytes, err := e.writer.Finish()
	e.bytesWritten = bytes
	if err != nil {
		return bytes, fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}
	return bytes, nil
}
