package services

import (
	"sync"
	"sync/atomic"
	"time"

	"screenpipe/internal/core/domain"

	"go.uber.org/zap"
)

// IngestPipeline converts the unbounded push stream delivered by the platform
// capture service into a paced, origin-relative stream consumed by the
// encoding session. It holds no queue: a sample is either forwarded
// immediately or dropped and counted, so the delivery thread always returns
// promptly.
type IngestPipeline struct {
	enc      *EncodingSession
	interval time.Duration
	onError  func(error)
	logger   *zap.SugaredLogger

	mu           sync.Mutex
	originSet    bool
	origin       time.Duration
	lastAccepted time.Duration

	samplesObserved atomic.Int64
	framesAccepted  atomic.Int64
	framesDropped   atomic.Int64
	audioAccepted   atomic.Int64
	audioDropped    atomic.Int64

	firstAccept     chan struct{}
	firstAcceptOnce sync.Once
}

// NewIngestPipeline wires a pipeline to an open encoding session. The target
// frame rate fixes the minimum inter-frame interval for throttling. onError
// receives session-level stream errors on the delivery context.
func NewIngestPipeline(enc *EncodingSession, profile domain.QualityProfile, onError func(error), logger *zap.SugaredLogger) *IngestPipeline {
	interval := time.Duration(0)
	if profile.FrameRate > 0 {
		interval = time.Second / time.Duration(profile.FrameRate)
	}
	return &IngestPipeline{
		enc:         enc,
		interval:    interval,
		onError:     onError,
		logger:      logger,
		firstAccept: make(chan struct{}),
	}
}

// FirstAccept is closed when the first video sample has been accepted. The
// screenshot path waits on it to finish the session after exactly one frame.
func (p *IngestPipeline) FirstAccept() <-chan struct{} {
	return p.firstAccept
}

// HandleSample runs on the capture service's delivery thread. It must never
// block: samples rejected by throttling or writer backpressure are counted,
// not buffered.
func (p *IngestPipeline) HandleSample(sample domain.FrameSample) {
	switch sample.Kind {
	case domain.SampleVideo:
		p.handleVideo(sample)
	case domain.SampleAudio:
		p.handleAudio(sample)
	}
}

func (p *IngestPipeline) handleVideo(sample domain.FrameSample) {
	p.samplesObserved.Add(1)

	p.mu.Lock()
	if !p.originSet {
		// First video sample anchors the session's timestamp origin and
		// opens the writing session at it.
		p.origin = sample.PTS
		p.originSet = true
		p.lastAccepted = -p.interval
		if err := p.enc.StartSession(p.origin); err != nil {
			p.mu.Unlock()
			p.framesDropped.Add(1)
			p.logger.Errorw("failed to open writing session", "error", err)
			return
		}
	}

	rel := sample.PTS - p.origin
	if rel < 0 || rel < p.lastAccepted+p.interval {
		p.mu.Unlock()
		p.framesDropped.Add(1)
		return
	}

	sample.PTS = rel
	if !p.enc.Append(sample) {
		p.mu.Unlock()
		p.framesDropped.Add(1)
		return
	}
	p.lastAccepted = rel
	p.mu.Unlock()

	p.framesAccepted.Add(1)
	p.firstAcceptOnce.Do(func() { close(p.firstAccept) })
}

// handleAudio forwards audio without frame-rate throttling; audio is
// rate-regular by construction. Samples arriving before the video origin is
// set are rejected rather than misattributed a negative timestamp, and audio
// is dropped silently when the session has no audio input.
func (p *IngestPipeline) handleAudio(sample domain.FrameSample) {
	if !p.enc.HasAudio() {
		p.audioDropped.Add(1)
		return
	}

	p.mu.Lock()
	if !p.originSet {
		p.mu.Unlock()
		p.audioDropped.Add(1)
		return
	}
	rel := sample.PTS - p.origin
	p.mu.Unlock()

	if rel < 0 {
		p.audioDropped.Add(1)
		return
	}

	sample.PTS = rel
	if p.enc.Append(sample) {
		p.audioAccepted.Add(1)
	} else {
		p.audioDropped.Add(1)
	}
}

// HandleStreamError forwards session-level capture errors to the controller.
func (p *IngestPipeline) HandleStreamError(err error) {
	if p.onError != nil {
		p.onError(err)
	}
}

// Origin returns the capture-clock timestamp of the first accepted video
// sample, and whether it has been set.
func (p *IngestPipeline) Origin() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.origin, p.originSet
}

// Counters returns a consistent snapshot of the drop-accounting counters.
func (p *IngestPipeline) Counters() (observed, accepted, dropped, audioAccepted, audioDropped int64) {
	return p.samplesObserved.Load(),
		p.framesAccepted.Load(),
		p.framesDropped.Load(),
		p.audioAccepted.Load(),
		p.audioDropped.Load()
}
