package platform

import (
	"fmt"
	"strings"
)

// MouseButton represents a mouse button.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

// ParseMouseButton converts a recorded button name to a MouseButton.
// Recorded names can be verbose ("Button.right"), so matching is by
// substring, defaulting to left.
func ParseMouseButton(s string) MouseButton {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "right"):
		return MouseRight
	case strings.Contains(lower, "middle"):
		return MouseMiddle
	default:
		return MouseLeft
	}
}

func (b MouseButton) String() string {
	switch b {
	case MouseRight:
		return "right"
	case MouseMiddle:
		return "middle"
	default:
		return "left"
	}
}

// ErrPermissionDenied is returned when the OS refuses input control,
// typically because the accessibility permission has not been granted.
var ErrPermissionDenied = fmt.Errorf("input control denied by the OS (missing accessibility permission)")
