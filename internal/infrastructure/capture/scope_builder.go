package capture

import (
	"context"
	"fmt"

	"screenpipe/internal/core/domain"

	"github.com/kbinani/screenshot"
)

// FullScreenScopeBuilder constructs a whole-display capture scope, verifying
// the display still matches its advertised geometry at build time. Results
// are memoized per display by the content-filter cache, so the validation
// cost is paid once per display.
type FullScreenScopeBuilder struct{}

func NewFullScreenScopeBuilder() *FullScreenScopeBuilder {
	return &FullScreenScopeBuilder{}
}

func (b *FullScreenScopeBuilder) Build(ctx context.Context, display domain.Display) (domain.CaptureScope, error) {
	if display.Index < 0 || display.Index >= screenshot.NumActiveDisplays() {
		return domain.CaptureScope{}, fmt.Errorf("%w: display index %d", domain.ErrNoDisplay, display.Index)
	}

	bounds := screenshot.GetDisplayBounds(display.Index)
	if bounds.Dx() != display.Width || bounds.Dy() != display.Height {
		return domain.CaptureScope{}, fmt.Errorf("%w: display %s is now %dx%d",
			domain.ErrDisplayReconfigured, display.ID, bounds.Dx(), bounds.Dy())
	}

	return domain.CaptureScope{Display: display}, nil
}
