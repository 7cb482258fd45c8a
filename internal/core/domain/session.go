package domain

import (
	"time"
)

type SessionID string
type DisplayID string

type SessionKind string

const (
	KindScreenshot SessionKind = "screenshot"
	KindRecording  SessionKind = "recording"
)

type SessionStatus string

const (
	StatusIdle       SessionStatus = "idle"
	StatusPreparing  SessionStatus = "preparing"
	StatusCapturing  SessionStatus = "capturing"
	StatusRecording  SessionStatus = "recording"
	StatusPaused     SessionStatus = "paused"
	StatusFinalizing SessionStatus = "finalizing"
	StatusOptimizing SessionStatus = "optimizing"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// Terminal reports whether the status is an end state of the session
// lifecycle. The controller returns to idle implicitly on the next start.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CaptureSession is the unit of work for one screenshot or one recording.
// It is owned exclusively by the session controller; the ingestion pipeline
// and encoding session receive a reference and never outlive it.
type CaptureSession struct {
	ID          SessionID
	Kind        SessionKind
	Status      SessionStatus
	Profile     QualityProfile
	Scope       CaptureScope
	Destination string

	// StartedAt is the wall-clock anchor. FirstSamplePTS is the capture-clock
	// anchor, set on the first accepted video sample. The two clocks are
	// distinct and must never be conflated.
	StartedAt      time.Time
	FirstSamplePTS time.Duration
}

// CaptureRequest carries everything a screenshot session needs, resolved once
// at start. Quality and DPI settings are never re-read mid-session.
type CaptureRequest struct {
	Tier         QualityTier
	DisplayIndex int
	ScaleFactor  float64
	DPI          float64
}

type RecordingOptions struct {
	Tier         QualityTier
	DisplayIndex int
	IncludeAudio bool
}

type CaptureMetadata struct {
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	ScaleFactor   float64   `json:"scale_factor"`
	DPI           float64   `json:"dpi"`
	CaptureMethod string    `json:"capture_method"`
	Timestamp     time.Time `json:"timestamp"`
}

type CaptureResult struct {
	Data     []byte             `json:"data"`
	Metadata CaptureMetadata    `json:"metadata"`
	Metrics  PerformanceMetrics `json:"metrics"`
}

type RecordingResult struct {
	Path    string             `json:"path"`
	Metrics PerformanceMetrics `json:"metrics"`
}

// RecordingStatus is the advisory progress/state snapshot published to UI
// observers. It is not part of the correctness contract.
type RecordingStatus struct {
	SessionID SessionID     `json:"session_id,omitempty"`
	Kind      SessionKind   `json:"kind,omitempty"`
	State     SessionStatus `json:"state"`
	Progress  float64       `json:"progress"`
	Reason    string        `json:"reason,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
