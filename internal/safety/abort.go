package safety

import (
	"os"

	"golang.org/x/term"
)

const (
	keyEscape = 0x1b
	keyCtrlC  = 0x03
)

// AbortListener watches stdin for the abort key (ESC or Ctrl-C) and cancels
// the token when it is pressed. The terminal is switched to raw mode so a
// single keypress is enough — no Enter required.
type AbortListener struct {
	token    *Token
	fd       int
	oldState *term.State
}

// NewAbortListener creates a listener that cancels token on the abort key.
func NewAbortListener(token *Token) *AbortListener {
	return &AbortListener{token: token, fd: int(os.Stdin.Fd())}
}

// Start puts the terminal into raw mode and begins watching for the abort
// key. It is a no-op when stdin is not a terminal (piped input, MCP serve).
func (l *AbortListener) Start() error {
	if !term.IsTerminal(l.fd) {
		return nil
	}
	oldState, err := term.MakeRaw(l.fd)
	if err != nil {
		return err
	}
	l.oldState = oldState

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 1 && (buf[0] == keyEscape || buf[0] == keyCtrlC) {
				l.token.Cancel()
				return
			}
			if l.token.Cancelled() {
				return
			}
		}
	}()
	return nil
}

// Stop restores the terminal state. The read goroutine exits on the next
// keypress or at process exit; it never outlives more than one run because
// it also checks the token.
func (l *AbortListener) Stop() {
	if l.oldState != nil {
		_ = term.Restore(l.fd, l.oldState)
		l.oldState = nil
	}
}
