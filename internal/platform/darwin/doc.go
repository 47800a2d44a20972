// Package darwin provides the macOS backends for input injection,
// application activation, and display geometry, built on CGEvent posting
// and NSWorkspace. All entry points require the accessibility permission;
// event posting silently drops without it, which surfaces as move
// verification failures in the actuator.
package darwin
