package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"screenpipe/internal/core/domain"
	"screenpipe/internal/core/ports"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// ScreenGrabber drives the platform screen-capture API on a ticker matched to
// the session's frame rate and pushes raw RGBA frames to the sample handler.
// Timestamps come from a monotonic epoch taken when the stream starts; they
// are capture-clock values, normalized downstream.
type ScreenGrabber struct {
	logger *zap.SugaredLogger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	paused  bool
	running bool
}

func NewScreenGrabber(logger *zap.SugaredLogger) *ScreenGrabber {
	return &ScreenGrabber{logger: logger}
}

// ListDisplays enumerates active displays, primary first.
func (g *ScreenGrabber) ListDisplays(ctx context.Context) ([]domain.Display, error) {
	n := screenshot.NumActiveDisplays()
	displays := make([]domain.Display, 0, n)
	for i := 0; i < n; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		displays = append(displays, domain.Display{
			ID:      domain.DisplayID(fmt.Sprintf("display-%d", i)),
			Index:   i,
			Width:   bounds.Dx(),
			Height:  bounds.Dy(),
			Primary: i == 0,
		})
	}
	return displays, nil
}

// Start launches the grab loop. Frames are delivered on a dedicated goroutine
// until Stop; delivery failures are reported through the handler, never
// returned here.
func (g *ScreenGrabber) Start(ctx context.Context, scope domain.CaptureScope, profile domain.QualityProfile, handler ports.SampleHandler) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return fmt.Errorf("capture stream already running")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.done = make(chan struct{})
	g.paused = false
	g.running = true

	go g.run(runCtx, scope, profile, handler)
	return nil
}

func (g *ScreenGrabber) run(ctx context.Context, scope domain.CaptureScope, profile domain.QualityProfile, handler ports.SampleHandler) {
	defer close(g.done)

	frameRate := profile.FrameRate
	if frameRate <= 0 {
		frameRate = 30
	}
	epoch := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	display := scope.Display
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if g.isPaused() {
			continue
		}

		bounds := screenshot.GetDisplayBounds(display.Index)
		if bounds.Dx() != display.Width || bounds.Dy() != display.Height {
			handler.HandleStreamError(fmt.Errorf("%w: display %s changed from %dx%d to %dx%d",
				domain.ErrDisplayReconfigured, display.ID,
				display.Width, display.Height, bounds.Dx(), bounds.Dy()))
			return
		}

		img, err := screenshot.CaptureRect(bounds)
		if err != nil {
			handler.HandleStreamError(fmt.Errorf("grab display %s: %w", display.ID, err))
			return
		}

		handler.HandleSample(domain.FrameSample{
			Kind:   domain.SampleVideo,
			PTS:    time.Since(epoch),
			Data:   img.Pix,
			Width:  img.Bounds().Dx(),
			Height: img.Bounds().Dy(),
		})
	}
}

// Pause suspends frame delivery without tearing the stream down.
func (g *ScreenGrabber) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return fmt.Errorf("capture stream not running")
	}
	g.paused = true
	return nil
}

// Resume restarts frame delivery after Pause.
func (g *ScreenGrabber) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return fmt.Errorf("capture stream not running")
	}
	g.paused = false
	return nil
}

// Stop tears down the grab loop and waits for the delivery goroutine to
// drain, bounded by ctx.
func (g *ScreenGrabber) Stop(ctx context.Context) error {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	g.running = false
	cancel := g.cancel
	done := g.done
	g.cancel = nil
	g.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for capture stream shutdown: %w", ctx.Err())
	}
}

func (g *ScreenGrabber) isPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}
