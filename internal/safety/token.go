// Package safety holds the cooperative cancellation token, the global
// abort-key listener, and pre-run safety checks. A replay takes over the
// user's mouse and keyboard; everything here exists so a human can always
// get control back within a bounded time.
package safety

import (
	"errors"
	"sync"
	"time"
)

// ErrCancelled is returned from every suspension point once the token has
// been set. It is terminal: the engine never retries it and continueOnError
// never swallows it.
var ErrCancelled = errors.New("replay cancelled")

// Token is a set-once cancellation flag, safe to set from any goroutine
// (abort-key listener, MCP stop tool, signal handler) while the run loop
// polls it. It never resets mid-run; create a fresh token per run.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken creates an unset token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel sets the token. Safe to call repeatedly and concurrently.
func (t *Token) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether the token has been set.
func (t *Token) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the token is set.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Err returns ErrCancelled if the token has been set, nil otherwise.
func (t *Token) Err() error {
	if t.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// Sleep suspends for d or until the token is set, whichever comes first.
// Returns ErrCancelled if interrupted. All engine waits go through here so
// no delay ever outlives a cancellation request.
func (t *Token) Sleep(d time.Duration) error {
	if d <= 0 {
		return t.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.done:
		return ErrCancelled
	case <-timer.C:
		return nil
	}
}
