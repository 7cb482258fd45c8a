package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"screenpipe/internal/core/domain"
	"screenpipe/internal/core/ports"
	"screenpipe/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionController coordinates one capture or recording lifecycle at a time:
// resolving the quality profile, acquiring the capture scope, constructing
// the encoding session, driving the platform capture service, and exposing
// progress and metrics. At most one session is active system-wide.
type SessionController struct {
	capture     ports.CaptureService
	permissions ports.PermissionChecker
	writers     ports.WriterFactory
	scopes      *ContentFilterCache
	resolver    *QualityResolver
	monitor     ports.SessionObserver
	publisher   ports.StatusPublisher
	optimizer   ports.Optimizer
	logger      *zap.SugaredLogger

	mu       sync.Mutex
	status   domain.SessionStatus
	progress float64
	session  *domain.CaptureSession
	enc      *EncodingSession
	pipeline *IngestPipeline

	// recording duration accounting; paused segments are excluded
	activeSince time.Time
	accumulated time.Duration

	streamErr chan error
	stopWatch chan struct{}
}

func NewSessionController(
	capture ports.CaptureService,
	permissions ports.PermissionChecker,
	writers ports.WriterFactory,
	scopes *ContentFilterCache,
	resolver *QualityResolver,
	monitor ports.SessionObserver,
	publisher ports.StatusPublisher,
	optimizer ports.Optimizer,
	logger *zap.SugaredLogger,
) *SessionController {
	return &SessionController{
		capture:     capture,
		permissions: permissions,
		writers:     writers,
		scopes:      scopes,
		resolver:    resolver,
		monitor:     monitor,
		publisher:   publisher,
		optimizer:   optimizer,
		logger:      logger,
		status:      domain.StatusIdle,
	}
}

// Status returns the current advisory state snapshot.
func (c *SessionController) Status() domain.RecordingStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := domain.RecordingStatus{
		State:     c.status,
		Progress:  c.progress,
		Timestamp: time.Now(),
	}
	if c.session != nil {
		status.SessionID = c.session.ID
		status.Kind = c.session.Kind
	}
	return status
}

// Capture acquires exactly one frame from the platform capture service,
// encodes it as a still image and returns the resolved bytes, metadata and
// metrics. It suspends until the frame is delivered, the context is
// cancelled, or the stream reports an error.
func (c *SessionController) Capture(ctx context.Context, req domain.CaptureRequest) (*domain.CaptureResult, error) {
	session, err := c.begin(domain.KindScreenshot, "")
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.TraceSession(ctx, "capture", string(session.ID), string(session.Kind))
	defer span.End()

	profile, still, err := c.prepare(ctx, session, req.Tier, req.DisplayIndex, false, req.ScaleFactor, req.DPI)
	if err != nil {
		return nil, c.fail(session, err)
	}

	c.setStatus(session, domain.StatusCapturing, 0.4)
	if err := c.capture.Start(ctx, session.Scope, profile, c.pipeline); err != nil {
		return nil, c.fail(session, fmt.Errorf("start capture stream: %w", err))
	}

	var waitErr error
	select {
	case <-c.pipeline.FirstAccept():
	case err := <-c.streamErr:
		waitErr = err
	case <-ctx.Done():
		waitErr = domain.ErrCancelled
	}

	if err := c.capture.Stop(context.Background()); err != nil {
		c.logger.Warnw("failed to stop capture stream", "session_id", session.ID, "error", err)
	}

	c.setStatus(session, domain.StatusFinalizing, 0.8)
	bytesWritten, finishErr := c.enc.Finish()

	metrics := c.collectMetrics(session, bytesWritten, time.Since(session.StartedAt))
	c.monitor.ObserveSession(metrics)

	if waitErr != nil {
		tracing.RecordError(ctx, waitErr)
		return nil, c.fail(session, waitErr)
	}
	if finishErr != nil {
		tracing.RecordError(ctx, finishErr)
		return nil, c.fail(session, finishErr)
	}

	data := c.finishedBytes()
	if len(data) == 0 {
		return nil, c.fail(session, fmt.Errorf("%w: empty still image output", domain.ErrWriteFailed))
	}

	result := &domain.CaptureResult{
		Data: data,
		Metadata: domain.CaptureMetadata{
			Width:         profile.Width,
			Height:        profile.Height,
			ScaleFactor:   still.ScaleFactor,
			DPI:           still.DPI,
			CaptureMethod: "display",
			Timestamp:     session.StartedAt,
		},
		Metrics: metrics,
	}

	tracing.AddSpanAttributes(ctx,
		tracing.FramesKey.Int64(metrics.FramesAccepted),
		tracing.BytesKey.Int64(metrics.BytesWritten),
	)
	c.complete(session)
	return result, nil
}

// StartRecording begins a recording session writing to destination. It
// returns once the platform capture service is delivering samples; the
// session runs until StopRecording.
func (c *SessionController) StartRecording(ctx context.Context, destination string, opts domain.RecordingOptions) (domain.SessionID, error) {
	if destination == "" {
		return "", domain.ErrNoDestination
	}

	session, err := c.begin(domain.KindRecording, destination)
	if err != nil {
		return "", err
	}

	ctx, span := tracing.TraceSession(ctx, "start_recording", string(session.ID), string(session.Kind))
	defer span.End()

	profile, _, err := c.prepare(ctx, session, opts.Tier, opts.DisplayIndex, opts.IncludeAudio, 0, 0)
	if err != nil {
		return "", c.fail(session, err)
	}

	if err := c.capture.Start(ctx, session.Scope, profile, c.pipeline); err != nil {
		return "", c.fail(session, fmt.Errorf("start capture stream: %w", err))
	}

	c.mu.Lock()
	c.activeSince = time.Now()
	c.accumulated = 0
	c.stopWatch = make(chan struct{})
	go c.watchStream(session, c.streamErr, c.stopWatch)
	c.mu.Unlock()

	c.setStatus(session, domain.StatusRecording, 0.5)
	return session.ID, nil
}

// StopRecording stops the platform capture service, finalizes the container
// and optionally runs the optimization pass. On a finalize failure the
// partially flushed result is still returned alongside the error.
func (c *SessionController) StopRecording(ctx context.Context, optimize bool) (*domain.RecordingResult, error) {
	c.mu.Lock()
	if c.status != domain.StatusRecording && c.status != domain.StatusPaused {
		c.mu.Unlock()
		return nil, domain.ErrNotRecording
	}
	session := c.session
	if c.status == domain.StatusRecording {
		c.accumulated += time.Since(c.activeSince)
	}
	duration := c.accumulated
	if c.stopWatch != nil {
		close(c.stopWatch)
		c.stopWatch = nil
	}
	c.mu.Unlock()

	ctx, span := tracing.TraceSession(ctx, "stop_recording", string(session.ID), string(session.Kind))
	defer span.End()

	c.setStatus(session, domain.StatusFinalizing, 0.8)
	if err := c.capture.Stop(ctx); err != nil {
		c.logger.Warnw("failed to stop capture stream", "session_id", session.ID, "error", err)
	}

	bytesWritten, finishErr := c.enc.Finish()
	metrics := c.collectMetrics(session, bytesWritten, duration)
	c.monitor.ObserveSession(metrics)

	result := &domain.RecordingResult{
		Path:    session.Destination,
		Metrics: metrics,
	}

	if finishErr != nil {
		// The container may be truncated but whatever was flushed is
		// preserved at the destination; report both.
		tracing.RecordError(ctx, finishErr)
		c.fail(session, finishErr)
		return result, finishErr
	}

	if optimize && c.optimizer != nil {
		c.setStatus(session, domain.StatusOptimizing, 0.9)
		if err := c.optimizer.Optimize(ctx, session.Destination); err != nil {
			// The pre-optimization output stays intact and usable.
			c.logger.Warnw("optimization pass failed, keeping original output",
				"session_id", session.ID, "path", session.Destination, "error", err)
		}
	}

	tracing.AddSpanAttributes(ctx,
		tracing.FramesKey.Int64(metrics.FramesAccepted),
		tracing.DroppedKey.Int64(metrics.FramesDropped),
		tracing.BytesKey.Int64(metrics.BytesWritten),
	)
	c.complete(session)
	return result, nil
}

// PauseRecording suspends sample delivery and duration accounting.
func (c *SessionController) PauseRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != domain.StatusRecording {
		return domain.ErrInvalidState
	}
	if err := c.capture.Pause(); err != nil {
		return fmt.Errorf("pause capture stream: %w", err)
	}
	c.accumulated += time.Since(c.activeSince)
	c.status = domain.StatusPaused
	c.publish(c.session, domain.StatusPaused, c.progress, "")
	return nil
}

// ResumeRecording resumes a paused recording.
func (c *SessionController) ResumeRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != domain.StatusPaused {
		return domain.ErrInvalidState
	}
	if err := c.capture.Resume(); err != nil {
		return fmt.Errorf("resume capture stream: %w", err)
	}
	c.activeSince = time.Now()
	c.status = domain.StatusRecording
	c.publish(c.session, domain.StatusRecording, c.progress, "")
	return nil
}

// begin claims the single active-session slot or fails with the
// state-specific error without altering the active session.
func (c *SessionController) begin(kind domain.SessionKind, destination string) (*domain.CaptureSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != domain.StatusIdle && !c.status.Terminal() {
		if c.session != nil && c.session.Kind == domain.KindRecording {
			return nil, domain.ErrAlreadyRecording
		}
		return nil, domain.ErrCaptureInProgress
	}

	session := &domain.CaptureSession{
		ID:          domain.SessionID(uuid.NewString()),
		Kind:        kind,
		Status:      domain.StatusPreparing,
		Destination: destination,
		StartedAt:   time.Now(),
	}
	c.session = session
	c.status = domain.StatusPreparing
	c.progress = 0.1
	c.enc = nil
	c.pipeline = nil
	c.streamErr = make(chan error, 1)
	c.publish(session, domain.StatusPreparing, 0.1, "")
	return session, nil
}

// prepare resolves the quality profile, acquires and validates the capture
// scope, and constructs the encoding session. It fails fast before any
// platform resource is acquired.
func (c *SessionController) prepare(
	ctx context.Context,
	session *domain.CaptureSession,
	tier domain.QualityTier,
	displayIndex int,
	includeAudio bool,
	scaleFactor, dpi float64,
) (domain.QualityProfile, domain.StillProfile, error) {
	allowed, err := c.permissions.CaptureAllowed(ctx)
	if err != nil {
		return domain.QualityProfile{}, domain.StillProfile{}, fmt.Errorf("permission check: %w", err)
	}
	if !allowed {
		return domain.QualityProfile{}, domain.StillProfile{}, domain.ErrPermissionDenied
	}

	displays, err := c.capture.ListDisplays(ctx)
	if err != nil {
		return domain.QualityProfile{}, domain.StillProfile{}, fmt.Errorf("list displays: %w", err)
	}
	if len(displays) == 0 {
		return domain.QualityProfile{}, domain.StillProfile{}, domain.ErrNoDisplay
	}
	if displayIndex < 0 || displayIndex >= len(displays) {
		return domain.QualityProfile{}, domain.StillProfile{}, fmt.Errorf("%w: display index %d out of range", domain.ErrNoDisplay, displayIndex)
	}
	display := displays[displayIndex]

	scope, err := c.scopes.Scope(ctx, display)
	if err != nil {
		return domain.QualityProfile{}, domain.StillProfile{}, err
	}

	profile := c.resolver.Resolve(tier, display.Width, display.Height)
	still := c.resolver.ResolveStill(scaleFactor, dpi)

	writer, err := c.writers.NewWriter(session.Kind, profile, still, session.Destination)
	if err != nil {
		return domain.QualityProfile{}, domain.StillProfile{}, fmt.Errorf("%w: %v", domain.ErrSetupFailed, err)
	}

	enc, err := OpenEncodingSession(writer, profile, includeAudio, c.logger)
	if err != nil {
		return domain.QualityProfile{}, domain.StillProfile{}, err
	}

	pipeline := NewIngestPipeline(enc, profile, c.reportStreamError, c.logger)

	c.mu.Lock()
	session.Profile = profile
	session.Scope = scope
	c.enc = enc
	c.pipeline = pipeline
	c.mu.Unlock()

	c.logger.Infow("session prepared",
		"session_id", session.ID,
		"kind", session.Kind,
		"display", display.ID,
		"width", profile.Width,
		"height", profile.Height,
		"fps", profile.FrameRate,
		"bitrate_kbps", profile.BitrateKbps,
	)
	return profile, still, nil
}

// reportStreamError runs on the delivery thread; it must not block.
func (c *SessionController) reportStreamError(err error) {
	select {
	case c.streamErr <- err:
	default:
	}
}

// watchStream handles mid-recording stream errors: the container is still
// finalized to preserve whatever was captured, then the session fails with
// the underlying cause.
func (c *SessionController) watchStream(session *domain.CaptureSession, streamErr <-chan error, stop <-chan struct{}) {
	select {
	case <-stop:
		return
	case err := <-streamErr:
		c.mu.Lock()
		if c.session != session || (c.status != domain.StatusRecording && c.status != domain.StatusPaused) {
			c.mu.Unlock()
			return
		}
		if c.status == domain.StatusRecording {
			c.accumulated += time.Since(c.activeSince)
		}
		duration := c.accumulated
		c.stopWatch = nil
		c.mu.Unlock()

		c.logger.Errorw("capture stream failed mid-session", "session_id", session.ID, "error", err)
		if stopErr := c.capture.Stop(context.Background()); stopErr != nil {
			c.logger.Warnw("failed to stop capture stream", "session_id", session.ID, "error", stopErr)
		}

		bytesWritten, finishErr := c.enc.Finish()
		if finishErr != nil {
			c.logger.Errorw("finalize after stream error failed", "session_id", session.ID, "error", finishErr)
		}
		c.monitor.ObserveSession(c.collectMetrics(session, bytesWritten, duration))
		c.fail(session, err)
	}
}

func (c *SessionController) collectMetrics(session *domain.CaptureSession, bytesWritten int64, duration time.Duration) domain.PerformanceMetrics {
	observed, accepted, dropped, audioAccepted, audioDropped := c.pipeline.Counters()
	if origin, ok := c.pipeline.Origin(); ok {
		session.FirstSamplePTS = origin
	}
	return domain.PerformanceMetrics{
		SessionID:       session.ID,
		Kind:            session.Kind,
		StartedAt:       session.StartedAt,
		Duration:        duration,
		SamplesObserved: observed,
		FramesAccepted:  accepted,
		FramesDropped:   dropped,
		AudioAccepted:   audioAccepted,
		AudioDropped:    audioDropped,
		BytesWritten:    bytesWritten,
	}
}

func (c *SessionController) finishedBytes() []byte {
	c.mu.Lock()
	enc := c.enc
	c.mu.Unlock()
	if enc == nil {
		return nil
	}
	if buffered, ok := enc.Writer().(ports.BufferedWriter); ok {
		return buffered.Bytes()
	}
	return nil
}

func (c *SessionController) setStatus(session *domain.CaptureSession, status domain.SessionStatus, progress float64) {
	c.mu.Lock()
	c.status = status
	c.progress = progress
	session.Status = status
	c.mu.Unlock()
	c.publish(session, status, progress, "")
}

// fail transitions the session to the terminal failed state and returns the
// cause for the caller to propagate.
func (c *SessionController) fail(session *domain.CaptureSession, err error) error {
	c.mu.Lock()
	c.status = domain.StatusFailed
	session.Status = domain.StatusFailed
	if c.stopWatch != nil {
		close(c.stopWatch)
		c.stopWatch = nil
	}
	c.mu.Unlock()

	c.logger.Errorw("session failed", "session_id", session.ID, "kind", session.Kind, "error", err)
	c.publish(session, domain.StatusFailed, c.progress, err.Error())
	return err
}

func (c *SessionController) complete(session *domain.CaptureSession) {
	c.mu.Lock()
	c.status = domain.StatusCompleted
	c.progress = 1.0
	session.Status = domain.StatusCompleted
	c.mu.Unlock()
	c.publish(session, domain.StatusCompleted, 1.0, "")
}

func (c *SessionController) publish(session *domain.CaptureSession, status domain.SessionStatus, progress float64, reason string) {
	if c.publisher == nil {
		return
	}
	update := domain.RecordingStatus{
		State:     status,
		Progress:  progress,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	if session != nil {
		update.SessionID = session.ID
		update.Kind = session.Kind
	}
	c.publisher.Publish(update)
}
