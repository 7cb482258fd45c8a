package services

import (
	"screenpipe/internal/core/domain"
)

type tierCeiling struct {
	maxWidth    int
	maxHeight   int
	frameRate   int
	bitrateKbps int
	bufferDepth int
	hardware    bool
}

// QualityResolver maps a requested quality tier and the physical display's
// native resolution to a concrete encoder profile. Deterministic and
// side-effect free.
type QualityResolver struct {
	ceilings map[domain.QualityTier]tierCeiling
}

func NewQualityResolver() *QualityResolver {
	return &QualityResolver{
		ceilings: map[domain.QualityTier]tierCeiling{
			domain.TierLow: {
				maxWidth:    1280,
				maxHeight:   720,
				frameRate:   15,
				bitrateKbps: 2500,
				bufferDepth: 3,
				hardware:    false,
			},
			domain.TierMedium: {
				maxWidth:    1920,
				maxHeight:   1080,
				frameRate:   30,
				bitrateKbps: 6000,
				bufferDepth: 4,
				hardware:    true,
			},
			domain.TierHigh: {
				maxWidth:    2560,
				maxHeight:   1440,
				frameRate:   60,
				bitrateKbps: 12000,
				bufferDepth: 6,
				hardware:    true,
			},
			domain.TierUltra: {
				maxWidth:    3840,
				maxHeight:   2160,
				frameRate:   60,
				bitrateKbps: 24000,
				bufferDepth: 8,
				hardware:    true,
			},
		},
	}
}

// Resolve clamps the tier's resolution ceiling to the physical display.
// Output never exceeds the display's native resolution; content is never
// upscaled. Unknown tiers resolve as medium.
func (r *QualityResolver) Resolve(tier domain.QualityTier, displayWidth, displayHeight int) domain.QualityProfile {
	ceiling, ok := r.ceilings[tier]
	if !ok {
		ceiling = r.ceilings[domain.TierMedium]
	}

	width, height := clampResolution(displayWidth, displayHeight, ceiling.maxWidth, ceiling.maxHeight)

	return domain.QualityProfile{
		Width:         width,
		Height:        height,
		FrameRate:     ceiling.frameRate,
		BitrateKbps:   ceiling.bitrateKbps,
		BufferDepth:   ceiling.bufferDepth,
		HardwareAccel: ceiling.hardware,
	}
}

// ResolveStill derives the screenshot scale/DPI metadata from the
// independently configured pair; zero values take the defaults.
func (r *QualityResolver) ResolveStill(scaleFactor, dpi float64) domain.StillProfile {
	if scaleFactor <= 0 {
		scaleFactor = 2.0
	}
	if dpi <= 0 {
		dpi = 144
	}
	return domain.StillProfile{
		ScaleFactor: scaleFactor,
		DPI:         dpi,
	}
}

// clampResolution scales the display resolution down to fit within the tier
// ceiling, preserving aspect ratio. Dimensions are rounded down to even
// values for encoder compatibility.
func clampResolution(displayWidth, displayHeight, maxWidth, maxHeight int) (int, int) {
	if displayWidth <= 0 || displayHeight <= 0 {
		return 0, 0
	}

	scale := 1.0
	if displayWidth > maxWidth {
		scale = float64(maxWidth) / float64(displayWidth)
	}
	if s := float64(maxHeight) / float64(displayHeight); displayHeight > maxHeight && s < scale {
		scale = s
	}

	width := evenDown(int(float64(displayWidth) * scale))
	height := evenDown(int(float64(displayHeight) * scale))
	return width, height
}

func evenDown(v int) int {
	if v < 2 {
		return 2
	}
	return v - v%2
}
