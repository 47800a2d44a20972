//go:build darwin

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework ApplicationServices -framework Foundation -framework Carbon
#include <CoreGraphics/CoreGraphics.h>
#include <Carbon/Carbon.h>

static int cg_move_mouse(float x, float y) {
    CGPoint point = CGPointMake(x, y);
    CGEventRef move = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved, point, kCGMouseButtonLeft);
    if (!move) return -1;
    CGEventPost(kCGHIDEventTap, move);
    CFRelease(move);
    return 0;
}

// Read back the current hardware pointer location.
static int cg_mouse_position(float *x, float *y) {
    CGEventRef ev = CGEventCreate(NULL);
    if (!ev) return -1;
    CGPoint p = CGEventGetLocation(ev);
    CFRelease(ev);
    *x = p.x;
    *y = p.y;
    return 0;
}

static void cg_button_types(int button, CGEventType *downType, CGEventType *upType, CGMouseButton *cgButton) {
    switch (button) {
        case 1:  // right
            *cgButton = kCGMouseButtonRight;
            *downType = kCGEventRightMouseDown;
            *upType = kCGEventRightMouseUp;
            break;
        case 2:  // middle
            *cgButton = kCGMouseButtonCenter;
            *downType = kCGEventOtherMouseDown;
            *upType = kCGEventOtherMouseUp;
            break;
        default:  // left
            *cgButton = kCGMouseButtonLeft;
            *downType = kCGEventLeftMouseDown;
            *upType = kCGEventLeftMouseUp;
            break;
    }
}

// Post one press/release pair. clickState marks the pair's position in a
// multi-click sequence so the OS recognizes double- and triple-clicks.
static int cg_click(float x, float y, int button, int clickState) {
    CGPoint point = CGPointMake(x, y);
    CGEventType downType, upType;
    CGMouseButton cgButton;
    cg_button_types(button, &downType, &upType, &cgButton);

    CGEventRef down = CGEventCreateMouseEvent(NULL, downType, point, cgButton);
    CGEventRef up = CGEventCreateMouseEvent(NULL, upType, point, cgButton);
    if (!down || !up) {
        if (down) CFRelease(down);
        if (up) CFRelease(up);
        return -1;
    }
    CGEventSetIntegerValueField(down, kCGMouseEventClickState, clickState);
    CGEventSetIntegerValueField(up, kCGMouseEventClickState, clickState);
    CGEventPost(kCGHIDEventTap, down);
    CGEventPost(kCGHIDEventTap, up);
    CFRelease(down);
    CFRelease(up);
    return 0;
}

static int cg_mouse_edge(float x, float y, int button, int press) {
    CGPoint point = CGPointMake(x, y);
    CGEventType downType, upType;
    CGMouseButton cgButton;
    cg_button_types(button, &downType, &upType, &cgButton);

    CGEventRef ev = CGEventCreateMouseEvent(NULL, press ? downType : upType, point, cgButton);
    if (!ev) return -1;
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
    return 0;
}

static int cg_scroll(int dy, int dx) {
    CGEventRef scroll = CGEventCreateScrollWheelEvent(
        NULL,
        kCGScrollEventUnitLine,
        2,
        dy,
        dx);
    if (!scroll) return -1;
    CGEventPost(kCGHIDEventTap, scroll);
    CFRelease(scroll);
    return 0;
}

// Type a single Unicode character, carrying the currently held modifier flags.
static int cg_type_char(UniChar ch, uint64_t flags) {
    CGEventRef keyDown = CGEventCreateKeyboardEvent(NULL, 0, true);
    CGEventRef keyUp = CGEventCreateKeyboardEvent(NULL, 0, false);
    if (!keyDown || !keyUp) {
        if (keyDown) CFRelease(keyDown);
        if (keyUp) CFRelease(keyUp);
        return -1;
    }
    CGEventKeyboardSetUnicodeString(keyDown, 1, &ch);
    CGEventKeyboardSetUnicodeString(keyUp, 1, &ch);
    if (flags != 0) {
        CGEventSetFlags(keyDown, (CGEventFlags)flags);
        CGEventSetFlags(keyUp, (CGEventFlags)flags);
    }
    CGEventPost(kCGHIDEventTap, keyDown);
    CGEventPost(kCGHIDEventTap, keyUp);
    CFRelease(keyDown);
    CFRelease(keyUp);
    return 0;
}

static int cg_key_edge(CGKeyCode keyCode, int press, uint64_t flags) {
    CGEventRef ev = CGEventCreateKeyboardEvent(NULL, keyCode, press ? true : false);
    if (!ev) return -1;
    CGEventSetFlags(ev, (CGEventFlags)flags);
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
    return 0;
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"

	"github.com/replaykit/replay-cli/internal/platform"
)

// DarwinInputter implements platform.Inputter for macOS using CGEvent
// posting. It tracks held modifier keys so characters and key taps carry
// the right event flags while a modifier is down.
type DarwinInputter struct {
	mu        sync.Mutex
	heldFlags uint64
}

// NewInputter creates a new macOS inputter.
func NewInputter() *DarwinInputter {
	return &DarwinInputter{}
}

func (inp *DarwinInputter) MoveMouse(x, y int) error {
	if C.cg_move_mouse(C.float(x), C.float(y)) != 0 {
		return fmt.Errorf("failed to move mouse to (%d, %d): %w", x, y, platform.ErrPermissionDenied)
	}
	return nil
}

func (inp *DarwinInputter) MousePosition() (int, int, error) {
	var cx, cy C.float
	if C.cg_mouse_position(&cx, &cy) != 0 {
		return 0, 0, fmt.Errorf("failed to read mouse position: %w", platform.ErrPermissionDenied)
	}
	return int(cx), int(cy), nil
}

func (inp *DarwinInputter) ClickAt(x, y int, button platform.MouseButton, clickState int) error {
	if clickState < 1 {
		clickState = 1
	}
	if C.cg_click(C.float(x), C.float(y), cButton(button), C.int(clickState)) != 0 {
		return fmt.Errorf("failed to click at (%d, %d): %w", x, y, platform.ErrPermissionDenied)
	}
	return nil
}

func (inp *DarwinInputter) PressMouse(x, y int, button platform.MouseButton) error {
	if C.cg_mouse_edge(C.float(x), C.float(y), cButton(button), 1) != 0 {
		return fmt.Errorf("failed to press %s button at (%d, %d): %w", button, x, y, platform.ErrPermissionDenied)
	}
	return nil
}

func (inp *DarwinInputter) ReleaseMouse(x, y int, button platform.MouseButton) error {
	if C.cg_mouse_edge(C.float(x), C.float(y), cButton(button), 0) != 0 {
		return fmt.Errorf("failed to release %s button at (%d, %d): %w", button, x, y, platform.ErrPermissionDenied)
	}
	return nil
}

func (inp *DarwinInputter) Scroll(dy, dx int) error {
	if C.cg_scroll(C.int(dy), C.int(dx)) != 0 {
		return fmt.Errorf("failed to scroll: %w", platform.ErrPermissionDenied)
	}
	return nil
}

func (inp *DarwinInputter) TypeChar(ch rune) error {
	inp.mu.Lock()
	flags := inp.heldFlags
	inp.mu.Unlock()
	if C.cg_type_char(C.UniChar(ch), C.uint64_t(flags)) != 0 {
		return fmt.Errorf("failed to type character %q: %w", ch, platform.ErrPermissionDenied)
	}
	return nil
}

func (inp *DarwinInputter) KeyDown(name string) error {
	return inp.keyEdge(name, true)
}

func (inp *DarwinInputter) KeyUp(name string) error {
	return inp.keyEdge(name, false)
}

func (inp *DarwinInputter) TapKey(name string) error {
	if err := inp.keyEdge(name, true); err != nil {
		return err
	}
	return inp.keyEdge(name, false)
}

func (inp *DarwinInputter) keyEdge(name string, press bool) error {
	code, ok := lookupKeyCode(name)
	if !ok {
		return fmt.Errorf("unknown key: %q", name)
	}

	inp.mu.Lock()
	if mod, isMod := modifierFlagMap[normalizeKey(name)]; isMod {
		if press {
			inp.heldFlags |= mod
		} else {
			inp.heldFlags &^= mod
		}
	}
	flags := inp.heldFlags
	inp.mu.Unlock()

	cPress := C.int(0)
	if press {
		cPress = 1
	}
	if C.cg_key_edge(C.CGKeyCode(code), cPress, C.uint64_t(flags)) != 0 {
		return fmt.Errorf("failed to post key event %q: %w", name, platform.ErrPermissionDenied)
	}
	return nil
}

func cButton(button platform.MouseButton) C.int {
	switch button {
	case platform.MouseRight:
		return 1
	case platform.MouseMiddle:
		return 2
	default:
		return 0
	}
}

// macOS virtual key codes from Carbon Events.h.
var keyCodeMap = map[string]uint16{
	"a": 0x00, "b": 0x0B, "c": 0x08, "d": 0x02, "e": 0x0E, "f": 0x03,
	"g": 0x05, "h": 0x04, "i": 0x22, "j": 0x26, "k": 0x28, "l": 0x25,
	"m": 0x2E, "n": 0x2D, "o": 0x1F, "p": 0x23, "q": 0x0C, "r": 0x0F,
	"s": 0x01, "t": 0x11, "u": 0x20, "v": 0x09, "w": 0x0D, "x": 0x07,
	"y": 0x10, "z": 0x06,
	"0": 0x1D, "1": 0x12, "2": 0x13, "3": 0x14, "4": 0x15,
	"5": 0x17, "6": 0x16, "7": 0x1A, "8": 0x1C, "9": 0x19,
	"return": 0x24, "enter": 0x24, "tab": 0x30, "space": 0x31,
	"delete": 0x33, "backspace": 0x33, "escape": 0x35, "esc": 0x35,
	"up": 0x7E, "down": 0x7D, "left": 0x7B, "right": 0x7C,
	"home": 0x73, "end": 0x77, "pageup": 0x74, "pagedown": 0x79,
	"f1": 0x7A, "f2": 0x78, "f3": 0x63, "f4": 0x76, "f5": 0x60,
	"f6": 0x61, "f7": 0x62, "f8": 0x64, "f9": 0x65, "f10": 0x6D,
	"f11": 0x67, "f12": 0x6F,
	"cmd": 0x37, "command": 0x37, "shift": 0x38, "ctrl": 0x3B,
	"control": 0x3B, "alt": 0x3A, "opt": 0x3A, "option": 0x3A,
}

// Event flag masks for modifier keys, keyed by normalized name.
var modifierFlagMap = map[string]uint64{
	"cmd": 1 << 20, "command": 1 << 20, // kCGEventFlagMaskCommand
	"shift": 1 << 17, // kCGEventFlagMaskShift
	"ctrl":  1 << 18, "control": 1 << 18, // kCGEventFlagMaskControl
	"alt": 1 << 19, "opt": 1 << 19, "option": 1 << 19, // kCGEventFlagMaskAlternate
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func lookupKeyCode(name string) (uint16, bool) {
	code, ok := keyCodeMap[normalizeKey(name)]
	return code, ok
}
