package services

import (
	"context"
	"fmt"

	"screenpipe/internal/core/domain"
	"screenpipe/internal/core/ports"
	"screenpipe/pkg/cache"
)

// ContentFilterCache memoizes the capture-scope descriptor per display
// identity so repeated captures skip redundant reconstruction. Entries live
// for the process lifetime; display identities are assumed stable within a
// session, and a reconfiguration surfaces as a capture failure upstream.
type ContentFilterCache struct {
	cache   *cache.Cache
	builder ports.ScopeBuilder
}

func NewContentFilterCache(builder ports.ScopeBuilder) *ContentFilterCache {
	return &ContentFilterCache{
		cache:   cache.NewCache(0),
		builder: builder,
	}
}

// Scope returns the cached capture scope for the display, constructing and
// storing it on first use.
func (f *ContentFilterCache) Scope(ctx context.Context, display domain.Display) (domain.CaptureScope, error) {
	value, err := f.cache.GetOrSet(ctx, string(display.ID), func(ctx context.Context) (interface{}, error) {
		scope, err := f.builder.Build(ctx, display)
		if err != nil {
			return nil, fmt.Errorf("build capture scope for display %s: %w", display.ID, err)
		}
		return scope, nil
	})
	if err != nil {
		return domain.CaptureScope{}, err
	}
	return value.(domain.CaptureScope), nil
}

// Size returns the number of cached scopes.
func (f *ContentFilterCache) Size() int {
	return f.cache.Size()
}
