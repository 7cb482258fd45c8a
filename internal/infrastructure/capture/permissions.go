package capture

import (
	"context"
	"os"
	"runtime"
)

// DisplayPermissionChecker answers whether screen capture can proceed on this
// host. On Linux that means a reachable display server; elsewhere the capture
// API performs its own authorization and capture is assumed allowed.
type DisplayPermissionChecker struct{}

func NewDisplayPermissionChecker() *DisplayPermissionChecker {
	return &DisplayPermissionChecker{}
}

func (c *DisplayPermissionChecker) CaptureAllowed(ctx context.Context) (bool, error) {
	if runtime.GOOS != "linux" {
		return true, nil
	}
	if os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != "" {
		return true, nil
	}
	return false, nil
}
