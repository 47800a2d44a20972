//go:build darwin

package darwin

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>

static void cg_display_size(size_t *w, size_t *h) {
    CGDirectDisplayID display = CGMainDisplayID();
    *w = CGDisplayPixelsWide(display);
    *h = CGDisplayPixelsHigh(display);
}
*/
import "C"
import "fmt"

// DarwinScreen implements platform.Screen for macOS.
type DarwinScreen struct{}

// NewScreen creates a new macOS screen.
func NewScreen() *DarwinScreen {
	return &DarwinScreen{}
}

// DisplaySize returns the size of the primary display in points.
func (s *DarwinScreen) DisplaySize() (int, int, error) {
	var w, h C.size_t
	C.cg_display_size(&w, &h)
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("failed to read primary display size")
	}
	return int(w), int(h), nil
}
