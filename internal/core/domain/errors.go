package domain

import "errors"

var (
	ErrPermissionDenied    = errors.New("screen capture permission denied")
	ErrNoDisplay           = errors.New("no display available")
	ErrNoDestination       = errors.New("no destination path provided")
	ErrCaptureInProgress   = errors.New("capture already in progress")
	ErrAlreadyRecording    = errors.New("recording already in progress")
	ErrNotRecording        = errors.New("no recording in progress")
	ErrInvalidState        = errors.New("operation not valid in current state")
	ErrSetupFailed         = errors.New("encoder setup failed")
	ErrWriteFailed         = errors.New("media write failed")
	ErrCancelled           = errors.New("capture cancelled")
	ErrDisplayReconfigured = errors.New("display configuration changed mid-session")
)
