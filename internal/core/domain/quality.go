package domain

type QualityTier string

const (
	TierLow    QualityTier = "low"
	TierMedium QualityTier = "medium"
	TierHigh   QualityTier = "high"
	TierUltra  QualityTier = "ultra"
)

// QualityProfile is the resolved, immutable encoder configuration for one
// session. A quality change requires a new session.
type QualityProfile struct {
	Width       int
	Height      int
	FrameRate   int
	BitrateKbps int

	// BufferDepth is the encoder input queue depth; deeper buffers at higher
	// tiers absorb encoder jitter.
	BufferDepth int

	HardwareAccel bool
}

// StillProfile carries the still-image scale/DPI pair for the screenshot
// path. It is configured independently of recording tiers.
type StillProfile struct {
	ScaleFactor float64
	DPI         float64
}
