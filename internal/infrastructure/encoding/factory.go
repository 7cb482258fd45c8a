package encoding

import (
	"fmt"

	"screenpipe/internal/core/domain"
	"screenpipe/internal/core/ports"

	"go.uber.org/zap"
)

// WriterFactory selects the container writer for a session: an in-memory PNG
// writer for screenshots, an ffmpeg-backed MP4 writer for recordings.
type WriterFactory struct {
	ffmpegPath string
	logger     *zap.SugaredLogger
}

func NewWriterFactory(ffmpegPath string, logger *zap.SugaredLogger) *WriterFactory {
	return &WriterFactory{ffmpegPath: ffmpegPath, logger: logger}
}

func (f *WriterFactory) NewWriter(kind domain.SessionKind, profile domain.QualityProfile, still domain.StillProfile, destination string) (ports.MediaWriter, error) {
	switch kind {
	case domain.KindScreenshot:
		return NewStillWriter(still), nil
	case domain.KindRecording:
		if destination == "" {
			return nil, domain.ErrNoDestination
		}
		return NewFFmpegWriter(f.ffmpegPath, destination, f.logger), nil
	default:
		return nil, fmt.Errorf("unknown session kind %q", kind)
	}
}
