// Package platform abstracts the OS facilities the replay engine needs:
// pointer and keyboard event injection, application activation, and the
// primary display size. Platform-specific packages register a provider via
// NewProviderFunc in their init().
package platform

// Inputter injects low-level pointer and keyboard events.
//
// ClickAt posts a single press/release pair; clickState carries the
// position of the pair within a multi-click sequence (1 for single, 2 for
// the second click of a double-click) so the OS recognizes double- and
// triple-clicks. PressMouse/ReleaseMouse are split out for drag gestures
// that hold the button across pointer moves.
type Inputter interface {
	MoveMouse(x, y int) error
	MousePosition() (x, y int, err error)
	ClickAt(x, y int, button MouseButton, clickState int) error
	PressMouse(x, y int, button MouseButton) error
	ReleaseMouse(x, y int, button MouseButton) error
	Scroll(dy, dx int) error
	TypeChar(ch rune) error
	KeyDown(name string) error
	KeyUp(name string) error
	TapKey(name string) error
}

// WindowManager activates applications and reports the frontmost one.
type WindowManager interface {
	ActivateBundle(bundleID string) error
	ActivateApp(name string) error
	LaunchApp(name string) error
	FrontmostApp() (name string, pid int, err error)
}

// Screen reports display geometry.
type Screen interface {
	DisplaySize() (w, h int, err error)
}

// Provider bundles all platform backends for the current OS.
type Provider struct {
	Inputter      Inputter
	WindowManager WindowManager
	Screen        Screen
}

// NewProviderFunc is set by platform-specific packages via init().
// See internal/platform/darwin/init.go for the macOS registration.
var NewProviderFunc func() (*Provider, error)

// NewProvider returns a Provider for the current OS.
func NewProvider() (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, ErrUnsupported
	}
	return NewProviderFunc()
}
