package services

import (
	"errors"
	"testing"
	"time"

	"screenpipe/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestPipeline(t *testing.T, writer *memWriter, includeAudio bool, onError func(error)) *IngestPipeline {
	t.Helper()
	logger := zap.NewNop().Sugar()
	enc, err := OpenEncodingSession(writer, testProfile(), includeAudio, logger)
	assert.NoError(t, err)
	return NewIngestPipeline(enc, testProfile(), onError, logger)
}

func TestIngestPipelineOrigin(t *testing.T) {
	t.Run("first video sample anchors the origin at zero", func(t *testing.T) {
		writer := &memWriter{}
		pipeline := newTestPipeline(t, writer, false, nil)

		pipeline.HandleSample(videoSample(5 * time.Second))

		written := writer.written()
		assert.Len(t, written, 1)
		assert.Equal(t, time.Duration(0), written[0].PTS)

		origin, ok := pipeline.Origin()
		assert.True(t, ok)
		assert.Equal(t, 5*time.Second, origin)
	})

	t.Run("samples before the origin are dropped", func(t *testing.T) {
		writer := &memWriter{}
		pipeline := newTestPipeline(t, writer, false, nil)

		pipeline.HandleSample(videoSample(5 * time.Second))
		pipeline.HandleSample(videoSample(4 * time.Second))

		observed, accepted, dropped, _, _ := pipeline.Counters()
		assert.Equal(t, int64(2), observed)
		assert.Equal(t, int64(1), accepted)
		assert.Equal(t, int64(1), dropped)
	})

	t.Run("first accept signal fires once", func(t *testing.T) {
		writer := &memWriter{}
		pipeline := newTestPipeline(t, writer, false, nil)

		select {
		case <-pipeline.FirstAccept():
			t.Fatal("first accept fired before any sample")
		default:
		}

		pipeline.HandleSample(videoSample(time.Second))

		select {
		case <-pipeline.FirstAccept():
		default:
			t.Fatal("first accept did not fire after an accepted sample")
		}
	})
}

func TestIngestPipelineThrottling(t *testing.T) {
	t.Run("a 60Hz stream against a 30fps profile keeps every other frame", func(t *testing.T) {
		writer := &memWriter{}
		pipeline := newTestPipeline(t, writer, false, nil)

		for i := 0; i < 90; i++ {
			pipeline.HandleSample(videoSample(time.Duration(i) * time.Second / 60))
		}

		observed, accepted, dropped, _, _ := pipeline.Counters()
		assert.Equal(t, int64(90), observed)
		assert.Equal(t, int64(45), accepted)
		assert.Equal(t, int64(45), dropped)
	})

	t.Run("accounting invariant holds under writer backpressure", func(t *testing.T) {
		writer := &memWriter{}
		pipeline := newTestPipeline(t, writer, false, nil)

		pipeline.HandleSample(videoSample(0))
		writer.mu.Lock()
		writer.notReady = true
		writer.mu.Unlock()
		for i := 1; i < 10; i++ {
			pipeline.HandleSample(videoSample(time.Duration(i) * time.Second / 30))
		}

		observed, accepted, dropped, _, _ := pipeline.Counters()
		assert.Equal(t, int64(10), observed)
		assert.Equal(t, int64(1), accepted)
		assert.Equal(t, int64(9), dropped)
		assert.Equal(t, observed, accepted+dropped)
	})

	t.Run("a rejected frame does not advance the throttle window", func(t *testing.T) {
		writer := &memWriter{}
		pipeline := newTestPipeline(t, writer, false, nil)

		pipeline.HandleSample(videoSample(0))
		writer.mu.Lock()
		writer.notReady = true
		writer.mu.Unlock()
		pipeline.HandleSample(videoSample(time.Second / 30))
		writer.mu.Lock()
		writer.notReady = false
		writer.mu.Unlock()
		pipeline.HandleSample(videoSample(2 * time.Second / 30))

		_, accepted, dropped, _, _ := pipeline.Counters()
		assert.Equal(t, int64(2), accepted)
		assert.Equal(t, int64(1), dropped)
	})
}

func TestIngestPipelineAudio(t *testing.T) {
	t.Run("audio bypasses frame-rate throttling", func(t *testing.T) {
		writer := &memWriter{}
		pipeline := newTestPipeline(t, writer, true, nil)

		pipeline.HandleSample(videoSample(0))
		// Two audio samples closer together than the video interval.
		pipeline.HandleSample(domain.FrameSample{Kind: domain.SampleAudio, PTS: time.Millisecond, Data: []byte{1}})
		pipeline.HandleSample(domain.FrameSample{Kind: domain.SampleAudio, PTS: 2 * time.Millisecond, Data: []byte{1}})

		_, _, _, audioAccepted, audioDropped := pipeline.Counters()
		assert.Equal(t, int64(2), audioAccepted)
		assert.Equal(t, int64(0), audioDropped)
	})

	t.Run("audio before the video origin is rejected", func(t *testing.T) {
		writer := &memWriter{}
		pipeline := newTestPipeline(t, writer, true, nil)

		pipeline.HandleSample(domain.FrameSample{Kind: domain.SampleAudio, PTS: time.Second, Data: []byte{1}})
		pipeline.HandleSample(videoSample(2 * time.Second))
		pipeline.HandleSample(domain.FrameSample{Kind: domain.SampleAudio, PTS: time.Second, Data: []byte{1}})

		_, _, _, audioAccepted, audioDropped := pipeline.Counters()
		assert.Equal(t, int64(0), audioAccepted)
		assert.Equal(t, int64(2), audioDropped)
	})

	t.Run("audio is dropped silently without an audio track", func(t *testing.T) {
		writer := &memWriter{}
		pipeline := newTestPipeline(t, writer, false, nil)

		pipeline.HandleSample(videoSample(0))
		pipeline.HandleSample(domain.FrameSample{Kind: domain.SampleAudio, PTS: time.Millisecond, Data: []byte{1}})

		_, _, _, audioAccepted, audioDropped := pipeline.Counters()
		assert.Equal(t, int64(0), audioAccepted)
		assert.Equal(t, int64(1), audioDropped)
		assert.Len(t, writer.written(), 1)
	})

	t.Run("accepted audio is rewritten to the origin-relative clock", func(t *testing.T) {
		writer := &memWriter{}
		pipeline := newTestPipeline(t, writer, true, nil)

		pipeline.HandleSample(videoSample(3 * time.Second))
		pipeline.HandleSample(domain.FrameSample{Kind: domain.SampleAudio, PTS: 3*time.Second + 10*time.Millisecond, Data: []byte{1}})

		written := writer.written()
		assert.Len(t, written, 2)
		assert.Equal(t, 10*time.Millisecond, written[1].PTS)
	})
}

func TestIngestPipelineStreamError(t *testing.T) {
	var received error
	pipeline := newTestPipeline(t, &memWriter{}, false, func(err error) { received = err })

	cause := errors.New("display reconfigured")
	pipeline.HandleStreamError(cause)
	assert.Equal(t, cause, received)
}
