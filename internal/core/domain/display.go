package domain

type Display struct {
	ID      DisplayID
	Index   int
	Width   int
	Height  int
	Primary bool
}

// CaptureScope describes which display and windows a capture session includes.
// Display identities are assumed stable for the lifetime of a session; a
// reconfiguration mid-session surfaces as ErrDisplayReconfigured.
type CaptureScope struct {
	Display         Display
	ExcludedWindows []string
}
