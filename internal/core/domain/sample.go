package domain

import "time"

type SampleKind string

const (
	SampleVideo SampleKind = "video"
	SampleAudio SampleKind = "audio"
)

// FrameSample is a single decoded frame or audio chunk delivered by the
// platform capture service. Data is borrowed from the delivery callback;
// consumers must not retain it beyond processing.
type FrameSample struct {
	Kind SampleKind

	// PTS is the presentation timestamp. Samples arrive with capture-clock
	// timestamps; the ingestion pipeline rewrites accepted samples to
	// origin-relative offsets before appending them to the encoder.
	PTS time.Duration

	Data   []byte
	Width  int
	Height int
}
