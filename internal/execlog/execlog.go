// Package execlog implements the execution log stream: an append-only,
// ordered sequence of timestamped human-readable lines produced while a
// workflow replays. The engine is the only writer; observers read a copy.
package execlog

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Log accumulates timestamped lines and optionally tees them to a writer
// (typically stderr) as they are appended.
type Log struct {
	mu    sync.Mutex
	lines []string
	tee   io.Writer
	now   func() time.Time
}

// New creates a log. tee may be nil to keep lines in memory only.
func New(tee io.Writer) *Log {
	return &Log{tee: tee, now: time.Now}
}

// Printf appends one formatted, timestamped line.
func (l *Log) Printf(format string, args ...any) {
	line := fmt.Sprintf("[%s] %s", l.now().Format("15:04:05.000"), fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
	if l.tee != nil {
		fmt.Fprintln(l.tee, line)
	}
}

// Lines returns a copy of all lines appended so far, in order.
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len returns the number of lines appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}
