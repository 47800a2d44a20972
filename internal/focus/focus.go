// Package focus activates the application a step targets before any input
// is injected into it. Activation on a busy desktop is racy, so each
// strategy is tried in order under a short per-attempt timeout and the
// whole sequence is retried with linear backoff.
package focus

import (
	"errors"
	"fmt"
	"time"

	"github.com/replaykit/replay-cli/internal/execlog"
	"github.com/replaykit/replay-cli/internal/platform"
	"github.com/replaykit/replay-cli/internal/safety"
)

// ErrFocusFailed is returned when every strategy failed on every retry.
var ErrFocusFailed = errors.New("could not focus application")

const (
	defaultAttemptTimeout = 2 * time.Second
	defaultRetryDelay     = 500 * time.Millisecond
	defaultMaxAttempts    = 3
)

// Manager focuses applications with multi-strategy fallback: bundle
// identifier first (most precise), then display name, then
// launch-or-activate as a last resort.
type Manager struct {
	wm             platform.WindowManager
	log            *execlog.Log
	attemptTimeout time.Duration
	retryDelay     time.Duration
	maxAttempts    int
}

// NewManager creates a focus manager over the given window manager.
func NewManager(wm platform.WindowManager, log *execlog.Log) *Manager {
	return &Manager{
		wm:             wm,
		log:            log,
		attemptTimeout: defaultAttemptTimeout,
		retryDelay:     defaultRetryDelay,
		maxAttempts:    defaultMaxAttempts,
	}
}

// Focus brings the named application to the front. Either appName or
// bundleID may be empty; at least one must be set. The caller is expected
// to skip the call entirely when the app is already focused.
func (m *Manager) Focus(token *safety.Token, appName, bundleID string) error {
	if appName == "" && bundleID == "" {
		return fmt.Errorf("%w: no app name or bundle id", ErrFocusFailed)
	}

	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err := token.Err(); err != nil {
			return err
		}

		if err := m.tryStrategies(appName, bundleID); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < m.maxAttempts {
			m.logf("focus %s failed (attempt %d/%d): %v", label(appName, bundleID), attempt, m.maxAttempts, lastErr)
			// Linear backoff: attempt index × fixed delay.
			if err := token.Sleep(time.Duration(attempt) * m.retryDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrFocusFailed, label(appName, bundleID), lastErr)
}

func (m *Manager) tryStrategies(appName, bundleID string) error {
	var lastErr error

	if bundleID != "" {
		if err := m.bounded(func() error { return m.wm.ActivateBundle(bundleID) }); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if appName != "" {
		if err := m.bounded(func() error { return m.wm.ActivateApp(appName) }); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if err := m.bounded(func() error { return m.wm.LaunchApp(appName) }); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

// bounded runs one activation attempt under the per-attempt timeout. The
// underlying OS call has no deadline of its own and can hang on a
// misbehaving app.
func (m *Manager) bounded(fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(m.attemptTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("activation attempt timed out after %s", m.attemptTimeout)
	}
}

func (m *Manager) logf(format string, args ...any) {
	if m.log != nil {
		m.log.Printf(format, args...)
	}
}

func label(appName, bundleID string) string {
	if appName != "" {
		return appName
	}
	return bundleID
}
