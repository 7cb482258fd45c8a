package ports

import (
	"context"

	"screenpipe/internal/core/domain"
)

// SampleHandler is the message-passing boundary between the platform capture
// service and the ingestion pipeline. HandleSample is invoked on the
// service's delivery thread and must return promptly without blocking;
// HandleStreamError reports session-level failures (permission revoked,
// display reconfigured) out of band.
type SampleHandler interface {
	HandleSample(sample domain.FrameSample)
	HandleStreamError(err error)
}

// CaptureService abstracts the platform screen-capture service. Start pushes
// samples to the handler until Stop is called; Pause/Resume suspend delivery
// for the recording path.
type CaptureService interface {
	ListDisplays(ctx context.Context) ([]domain.Display, error)
	Start(ctx context.Context, scope domain.CaptureScope, profile domain.QualityProfile, handler SampleHandler) error
	Pause() error
	Resume() error
	Stop(ctx context.Context) error
}

// PermissionChecker is the authorization collaborator queried before a
// session proceeds past preparing. The core consumes the answer only; it
// never drives permission UI.
type PermissionChecker interface {
	CaptureAllowed(ctx context.Context) (bool, error)
}

// ScopeBuilder constructs the capture-scope descriptor for a display.
// Construction may be expensive; results are memoized per display identity
// by the content-filter cache.
type ScopeBuilder interface {
	Build(ctx context.Context, display domain.Display) (domain.CaptureScope, error)
}
