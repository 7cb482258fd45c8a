package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"screenpipe/internal/core/domain"
	"screenpipe/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockCaptureService struct {
	mock.Mock

	mu      sync.Mutex
	handler ports.SampleHandler
}

func (m *mockCaptureService) ListDisplays(ctx context.Context) ([]domain.Display, error) {
	args := m.Called(ctx)
	if displays := args.Get(0); displays != nil {
		return displays.([]domain.Display), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCaptureService) Start(ctx context.Context, scope domain.CaptureScope, profile domain.QualityProfile, handler ports.SampleHandler) error {
	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()
	args := m.Called(ctx, scope, profile, handler)
	return args.Error(0)
}

func (m *mockCaptureService) Pause() error {
	return m.Called().Error(0)
}

func (m *mockCaptureService) Resume() error {
	return m.Called().Error(0)
}

func (m *mockCaptureService) Stop(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockCaptureService) deliver(sample domain.FrameSample) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	handler.HandleSample(sample)
}

type mockPermissionChecker struct {
	mock.Mock
}

func (m *mockPermissionChecker) CaptureAllowed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type mockWriterFactory struct {
	mock.Mock
}

func (m *mockWriterFactory) NewWriter(kind domain.SessionKind, profile domain.QualityProfile, still domain.StillProfile, destination string) (ports.MediaWriter, error) {
	args := m.Called(kind, profile, still, destination)
	if writer := args.Get(0); writer != nil {
		return writer.(ports.MediaWriter), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockOptimizer struct {
	mock.Mock
}

func (m *mockOptimizer) Optimize(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

type capturingPublisher struct {
	mu      sync.Mutex
	updates []domain.RecordingStatus
}

func (p *capturingPublisher) Publish(status domain.RecordingStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, status)
}

func (p *capturingPublisher) states() []domain.SessionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.SessionStatus, len(p.updates))
	for i, update := range p.updates {
		out[i] = update.State
	}
	return out
}

type controllerFixture struct {
	capture   *mockCaptureService
	perms     *mockPermissionChecker
	writers   *mockWriterFactory
	optimizer *mockOptimizer
	publisher *capturingPublisher
	monitor   *PerformanceMonitor
	writer    *memWriter

	controller *SessionController
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		capture:   &mockCaptureService{},
		perms:     &mockPermissionChecker{},
		writers:   &mockWriterFactory{},
		optimizer: &mockOptimizer{},
		publisher: &capturingPublisher{},
		monitor:   NewPerformanceMonitor(10, nil),
		writer:    &memWriter{},
	}
	f.controller = NewSessionController(
		f.capture,
		f.perms,
		f.writers,
		NewContentFilterCache(&countingScopeBuilder{}),
		NewQualityResolver(),
		f.monitor,
		f.publisher,
		f.optimizer,
		zap.NewNop().Sugar(),
	)
	return f
}

func (f *controllerFixture) allowEverything() {
	f.perms.On("CaptureAllowed", mock.Anything).Return(true, nil)
	f.capture.On("ListDisplays", mock.Anything).Return([]domain.Display{
		{ID: "display-0", Index: 0, Width: 1920, Height: 1080, Primary: true},
	}, nil)
	f.writers.On("NewWriter", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(f.writer, nil)
	f.capture.On("Stop", mock.Anything).Return(nil)
}

func TestCapture(t *testing.T) {
	t.Run("captures exactly one frame", func(t *testing.T) {
		f := newControllerFixture(t)
		f.allowEverything()
		f.capture.On("Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				handler := args.Get(3).(ports.SampleHandler)
				handler.HandleSample(videoSample(250 * time.Millisecond))
			}).Return(nil)

		result, err := f.controller.Capture(context.Background(), domain.CaptureRequest{Tier: domain.TierMedium})

		assert.NoError(t, err)
		assert.NotEmpty(t, result.Data)
		assert.Equal(t, 1920, result.Metadata.Width)
		assert.Equal(t, 1080, result.Metadata.Height)
		assert.Equal(t, 2.0, result.Metadata.ScaleFactor)
		assert.Equal(t, 144.0, result.Metadata.DPI)
		assert.Equal(t, int64(1), result.Metrics.FramesAccepted)
		assert.Equal(t, domain.StatusCompleted, f.controller.Status().State)
		f.capture.AssertCalled(t, "Stop", mock.Anything)
		assert.Len(t, f.monitor.History(), 1)
	})

	t.Run("permission denied", func(t *testing.T) {
		f := newControllerFixture(t)
		f.perms.On("CaptureAllowed", mock.Anything).Return(false, nil)

		_, err := f.controller.Capture(context.Background(), domain.CaptureRequest{})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		assert.Equal(t, domain.StatusFailed, f.controller.Status().State)
	})

	t.Run("no displays", func(t *testing.T) {
		f := newControllerFixture(t)
		f.perms.On("CaptureAllowed", mock.Anything).Return(true, nil)
		f.capture.On("ListDisplays", mock.Anything).Return([]domain.Display{}, nil)

		_, err := f.controller.Capture(context.Background(), domain.CaptureRequest{})
		assert.ErrorIs(t, err, domain.ErrNoDisplay)
	})

	t.Run("display index out of range", func(t *testing.T) {
		f := newControllerFixture(t)
		f.allowEverything()

		_, err := f.controller.Capture(context.Background(), domain.CaptureRequest{DisplayIndex: 3})
		assert.ErrorIs(t, err, domain.ErrNoDisplay)
	})

	t.Run("cancellation stops the stream", func(t *testing.T) {
		f := newControllerFixture(t)
		f.allowEverything()
		f.capture.On("Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.controller.Capture(ctx, domain.CaptureRequest{})

		assert.ErrorIs(t, err, domain.ErrCancelled)
		f.capture.AssertCalled(t, "Stop", mock.Anything)
		assert.Equal(t, domain.StatusFailed, f.controller.Status().State)
	})

	t.Run("stream error fails the session", func(t *testing.T) {
		f := newControllerFixture(t)
		f.allowEverything()
		f.capture.On("Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				handler := args.Get(3).(ports.SampleHandler)
				handler.HandleStreamError(domain.ErrDisplayReconfigured)
			}).Return(nil)

		_, err := f.controller.Capture(context.Background(), domain.CaptureRequest{})
		assert.ErrorIs(t, err, domain.ErrDisplayReconfigured)
		f.capture.AssertCalled(t, "Stop", mock.Anything)
	})

	t.Run("a failed session does not block the next one", func(t *testing.T) {
		f := newControllerFixture(t)
		f.perms.On("CaptureAllowed", mock.Anything).Return(false, nil).Once()
		_, err := f.controller.Capture(context.Background(), domain.CaptureRequest{})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)

		f.allowEverything()
		f.capture.On("Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				handler := args.Get(3).(ports.SampleHandler)
				handler.HandleSample(videoSample(0))
			}).Return(nil)

		_, err = f.controller.Capture(context.Background(), domain.CaptureRequest{})
		assert.NoError(t, err)
	})
}

func TestRecordingLifecycle(t *testing.T) {
	t.Run("throttles a fast stream and accounts every sample", func(t *testing.T) {
		f := newControllerFixture(t)
		f.allowEverything()
		f.capture.On("Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		id, err := f.controller.StartRecording(context.Background(), "/tmp/out.mp4", domain.RecordingOptions{Tier: domain.TierMedium})
		assert.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, domain.StatusRecording, f.controller.Status().State)

		// A 60Hz source against the medium profile's 30fps target.
		for i := 0; i < 90; i++ {
			f.capture.deliver(videoSample(time.Duration(i) * time.Second / 60))
		}

		result, err := f.controller.StopRecording(context.Background(), false)
		assert.NoError(t, err)
		assert.Equal(t, "/tmp/out.mp4", result.Path)
		assert.Equal(t, int64(90), result.Metrics.SamplesObserved)
		assert.Equal(t, int64(45), result.Metrics.FramesAccepted)
		assert.Equal(t, int64(45), result.Metrics.FramesDropped)
		assert.Equal(t, result.Metrics.SamplesObserved, result.Metrics.FramesAccepted+result.Metrics.FramesDropped)
		assert.Equal(t, domain.StatusCompleted, f.controller.Status().State)
		assert.Len(t, f.monitor.History(), 1)
	})

	t.Run("requires a destination", func(t *testing.T) {
		f := newControllerFixture(t)
		_, err := f.controller.StartRecording(context.Background(), "", domain.RecordingOptions{})
		assert.ErrorIs(t, err, domain.ErrNoDestination)
	})

	t.Run("rejects overlapping sessions", func(t *testing.T) {
		f := newControllerFixture(t)
		f.allowEverything()
		f.capture.On("Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		_, err := f.controller.StartRecording(context.Background(), "/tmp/out.mp4", domain.RecordingOptions{})
		assert.NoError(t, err)

		_, err = f.controller.StartRecording(context.Background(), "/tmp/other.mp4", domain.RecordingOptions{})
		assert.ErrorIs(t, err, domain.ErrAlreadyRecording)

		_, err = f.controller.Capture(context.Background(), domain.CaptureRequest{})
		assert.ErrorIs(t, err, domain.ErrAlreadyRecording)
	})

	t.Run("stop without an active recording", func(t *testing.T) {
		f := newControllerFixture(t)
		_, err := f.controller.StopRecording(context.Background(), false)
		assert.ErrorIs(t, err, domain.ErrNotRecording)
	})

	t.Run("status progression is published", func(t *testing.T) {
		f := newControllerFixture(t)
		f.allowEverything()
		f.capture.On("Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		_, err := f.controller.StartRecording(context.Background(), "/tmp/out.mp4", domain.RecordingOptions{})
		assert.NoError(t, err)
		f.capture.deliver(videoSample(0))
		_, err = f.controller.StopRecording(context.Background(), false)
		assert.NoError(t, err)

		assert.Equal(t, []domain.SessionStatus{
			domain.StatusPreparing,
			domain.StatusRecording,
			domain.StatusFinalizing,
			domain.StatusCompleted,
		}, f.publisher.states())
	})
}

func TestPauseResume(t *testing.T) {
	startRecording := func(t *testing.T) *controllerFixture {
		t.Helper()
		f := newControllerFixture(t)
		f.allowEverything()
		f.capture.On("Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.capture.On("Pause").Return(nil)
		f.capture.On("Resume").Return(nil)
		_, err := f.controller.StartRecording(context.Background(), "/tmp/out.mp4", domain.RecordingOptions{})
		assert.NoError(t, err)
		return f
	}

	t.Run("pause and resume round trip", func(t *testing.T) {
		f := startRecording(t)

		assert.NoError(t, f.controller.PauseRecording())
		assert.Equal(t, domain.StatusPaused, f.controller.Status().State)

		assert.NoError(t, f.controller.ResumeRecording())
		assert.Equal(t, domain.StatusRecording, f.controller.Status().State)
	})

	t.Run("pause requires an active recording", func(t *testing.T) {
		f := newControllerFixture(t)
		assert.ErrorIs(t, f.controller.PauseRecording(), domain.ErrInvalidState)
	})

	t.Run("resume requires a paused recording", func(t *testing.T) {
		f := startRecording(t)
		assert.ErrorIs(t, f.controller.ResumeRecording(), domain.ErrInvalidState)
	})

	t.Run("double pause is rejected", func(t *testing.T) {
		f := startRecording(t)
		assert.NoError(t, f.controller.PauseRecording())
		assert.ErrorIs(t, f.controller.PauseRecording(), domain.ErrInvalidState)
	})

	t.Run("stop from paused finalizes normally", func(t *testing.T) {
		f := startRecording(t)
		f.capture.deliver(videoSample(0))
		assert.NoError(t, f.controller.PauseRecording())

		result, err := f.controller.StopRecording(context.Background(), false)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), result.Metrics.FramesAccepted)
	})
}

func TestStopRecordingOptimization(t *testing.T) {
	startAndDeliver := func(t *testing.T) *controllerFixture {
		t.Helper()
		f := newControllerFixture(t)
		f.allowEverything()
		f.capture.On("Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		_, err := f.controller.StartRecording(context.Background(), "/tmp/out.mp4", domain.RecordingOptions{})
		assert.NoError(t, err)
		f.capture.deliver(videoSample(0))
		return f
	}

	t.Run("runs the optimization pass when requested", func(t *testing.T) {
		f := startAndDeliver(t)
		f.optimizer.On("Optimize", mock.Anything, "/tmp/out.mp4").Return(nil)

		_, err := f.controller.StopRecording(context.Background(), true)
		assert.NoError(t, err)
		f.optimizer.AssertCalled(t, "Optimize", mock.Anything, "/tmp/out.mp4")
	})

	t.Run("optimization failure keeps the original result", func(t *testing.T) {
		f := startAndDeliver(t)
		f.optimizer.On("Optimize", mock.Anything, "/tmp/out.mp4").Return(assert.AnError)

		result, err := f.controller.StopRecording(context.Background(), true)
		assert.NoError(t, err)
		assert.Equal(t, "/tmp/out.mp4", result.Path)
		assert.Equal(t, domain.StatusCompleted, f.controller.Status().State)
	})

	t.Run("skips the optimizer when not requested", func(t *testing.T) {
		f := startAndDeliver(t)
		_, err := f.controller.StopRecording(context.Background(), false)
		assert.NoError(t, err)
		f.optimizer.AssertNotCalled(t, "Optimize", mock.Anything, mock.Anything)
	})
}
