package ports

import (
	"context"

	"screenpipe/internal/core/domain"
)

type SessionController interface {
	Capture(ctx context.Context, req domain.CaptureRequest) (*domain.CaptureResult, error)
	StartRecording(ctx context.Context, destination string, opts domain.RecordingOptions) (domain.SessionID, error)
	StopRecording(ctx context.Context, optimize bool) (*domain.RecordingResult, error)
	PauseRecording() error
	ResumeRecording() error
	Status() domain.RecordingStatus
}

// StatusPublisher receives advisory progress updates on a context distinct
// from the capture callback.
type StatusPublisher interface {
	Publish(status domain.RecordingStatus)
}

// SessionObserver is notified once per finished session with its final
// metrics. Implementations must serialize their own mutations.
type SessionObserver interface {
	ObserveSession(metrics domain.PerformanceMetrics)
}
