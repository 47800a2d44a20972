//go:build darwin

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework ApplicationServices -framework CoreFoundation -framework Foundation
#import <AppKit/AppKit.h>
#include <stdlib.h>
#include <string.h>

// Activate the first running application with the given bundle identifier.
static int ns_activate_bundle(const char *bundleID) {
    @autoreleasepool {
        NSString *bid = [NSString stringWithUTF8String:bundleID];
        NSArray<NSRunningApplication *> *apps =
            [NSRunningApplication runningApplicationsWithBundleIdentifier:bid];
        if ([apps count] == 0) return -1;
        NSRunningApplication *app = [apps firstObject];
        BOOL ok = [app activateWithOptions:NSApplicationActivateIgnoringOtherApps];
        return ok ? 0 : -1;
    }
}

// Activate a running application by localized name (case-insensitive).
static int ns_activate_named(const char *name) {
    @autoreleasepool {
        NSString *target = [NSString stringWithUTF8String:name];
        for (NSRunningApplication *app in [[NSWorkspace sharedWorkspace] runningApplications]) {
            NSString *appName = [app localizedName];
            if (appName && [appName caseInsensitiveCompare:target] == NSOrderedSame) {
                BOOL ok = [app activateWithOptions:NSApplicationActivateIgnoringOtherApps];
                return ok ? 0 : -1;
            }
        }
        return -1;
    }
}

// Launch (or activate, if already running) an application by name.
static int ns_launch_named(const char *name) {
    @autoreleasepool {
        NSString *appName = [NSString stringWithUTF8String:name];
        BOOL ok = [[NSWorkspace sharedWorkspace] launchApplication:appName];
        return ok ? 0 : -1;
    }
}

static int ns_get_frontmost_app(char **name, pid_t *pid) {
    @autoreleasepool {
        NSRunningApplication *app = [[NSWorkspace sharedWorkspace] frontmostApplication];
        if (!app) return -1;
        NSString *appName = [app localizedName];
        if (!appName) appName = @"";
        *name = strdup([appName UTF8String]);
        *pid = [app processIdentifier];
        return 0;
    }
}
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// DarwinWindowManager implements platform.WindowManager for macOS via
// NSRunningApplication and NSWorkspace.
type DarwinWindowManager struct{}

// NewWindowManager creates a new macOS window manager.
func NewWindowManager() *DarwinWindowManager {
	return &DarwinWindowManager{}
}

func (wm *DarwinWindowManager) ActivateBundle(bundleID string) error {
	if err := CheckAccessibilityPermission(); err != nil {
		return err
	}
	cBundle := C.CString(bundleID)
	defer C.free(unsafe.Pointer(cBundle))
	if C.ns_activate_bundle(cBundle) != 0 {
		return fmt.Errorf("failed to activate app with bundle id %q", bundleID)
	}
	return nil
}

func (wm *DarwinWindowManager) ActivateApp(name string) error {
	if err := CheckAccessibilityPermission(); err != nil {
		return err
	}
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	if C.ns_activate_named(cName) != 0 {
		return fmt.Errorf("no running app named %q", name)
	}
	return nil
}

func (wm *DarwinWindowManager) LaunchApp(name string) error {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	if C.ns_launch_named(cName) != 0 {
		return fmt.Errorf("failed to launch app %q", name)
	}
	return nil
}

func (wm *DarwinWindowManager) FrontmostApp() (string, int, error) {
	var cName *C.char
	var cPid C.pid_t

	if C.ns_get_frontmost_app(&cName, &cPid) != 0 {
		return "", 0, fmt.Errorf("failed to get frontmost app")
	}
	defer C.free(unsafe.Pointer(cName))

	return C.GoString(cName), int(cPid), nil
}
