// Package actuator turns resolved step targets into OS input events:
// animated pointer moves with post-move verification, click sequences,
// chunked typing, literal key-sequence replay, and scrolling. Every loop in
// here checks the cancellation token so an abort unwinds mid-gesture, and
// every handler that presses a key releases it on all exit paths.
package actuator

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/replaykit/replay-cli/internal/platform"
	"github.com/replaykit/replay-cli/internal/safety"
	"github.com/replaykit/replay-cli/internal/scale"
	"github.com/replaykit/replay-cli/internal/workflow"
)

// ErrActuationDenied is returned when the OS accepted input events but the
// pointer did not land where requested — the usual sign that the
// accessibility permission is missing or was revoked mid-run.
var ErrActuationDenied = errors.New("actuation denied by OS")

// MoveKind selects the animation profile for a pointer move.
type MoveKind int

const (
	// MoveForClick precedes a click: slower, finer steps.
	MoveForClick MoveKind = iota
	// MovePure is a standalone pointer move.
	MovePure
)

const (
	arrivedThreshold = 5.0 // px: closer than this is already-arrived

	clickMoveStepSize = 20.0
	pureMoveStepSize  = 35.0
	minMoveFrames     = 3

	clickMoveMaxDuration = 500 * time.Millisecond
	pureMoveMaxDuration  = 300 * time.Millisecond
	// Distance at which a move takes its full duration cap; shorter moves
	// scale sub-linearly (square root) below the cap.
	fullDurationDistance = 1000.0

	moveTolerance      = 10.0
	moveToleranceFinal = 20.0
	moveMaxAttempts    = 3

	doubleClickGap = 80 * time.Millisecond
	multiClickGap  = 160 * time.Millisecond
	prePressPause  = 60 * time.Millisecond

	keySequenceGap = 12 * time.Millisecond
)

// Options are typing-related tunables, loaded from config.
type Options struct {
	TypingChunkSize  int
	TypingInterval   time.Duration
	ChunkSettle      time.Duration
	ContinuousSettle time.Duration
}

// DefaultOptions mirror the config package defaults.
func DefaultOptions() Options {
	return Options{
		TypingChunkSize:  25,
		TypingInterval:   20 * time.Millisecond,
		ChunkSettle:      150 * time.Millisecond,
		ContinuousSettle: 150 * time.Millisecond,
	}
}

// TypeOptions carry the per-step context a type or backspace handler needs.
type TypeOptions struct {
	// Continuation is derived from the previous step's kind; continuous
	// steps assume the input field kept focus and skip re-focusing.
	Continuation workflow.ContinuationKind
	// NextIsType enables tab-boundary splitting: tab traversal moves focus
	// between fields, so the app is re-focused after each tab when more
	// typing follows.
	NextIsType bool
	// Refocus re-activates the target application. May be nil.
	Refocus func() error
}

// Actuator injects input through a platform Inputter.
type Actuator struct {
	in    platform.Inputter
	token *safety.Token
	opts  Options

	sleep func(time.Duration) error
}

// New creates an actuator bound to a cancellation token.
func New(in platform.Inputter, token *safety.Token, opts Options) *Actuator {
	if opts.TypingChunkSize <= 0 {
		opts.TypingChunkSize = DefaultOptions().TypingChunkSize
	}
	return &Actuator{in: in, token: token, opts: opts, sleep: token.Sleep}
}

// MoveTo animates the pointer to (x, y) and verifies it arrived. Targets
// closer than the arrival threshold are a no-op. A failed verification
// retries the whole animation; exhausting retries returns
// ErrActuationDenied.
func (a *Actuator) MoveTo(x, y int, kind MoveKind) error {
	for attempt := 1; attempt <= moveMaxAttempts; attempt++ {
		if err := a.token.Err(); err != nil {
			return err
		}

		curX, curY, err := a.in.MousePosition()
		if err != nil {
			return err
		}
		dist := math.Hypot(float64(x-curX), float64(y-curY))
		if dist < arrivedThreshold {
			return nil
		}

		if err := a.animateMove(curX, curY, x, y, dist, kind); err != nil {
			return err
		}

		gotX, gotY, err := a.in.MousePosition()
		if err != nil {
			return err
		}
		offset := math.Hypot(float64(x-gotX), float64(y-gotY))
		tolerance := moveTolerance
		if attempt == moveMaxAttempts {
			tolerance = moveToleranceFinal
		}
		if offset <= tolerance {
			return nil
		}
	}
	return fmt.Errorf("%w: pointer did not reach (%d, %d) after %d attempts — check accessibility permission", ErrActuationDenied, x, y, moveMaxAttempts)
}

func (a *Actuator) animateMove(fromX, fromY, toX, toY int, dist float64, kind MoveKind) error {
	stepSize := pureMoveStepSize
	maxDuration := pureMoveMaxDuration
	if kind == MoveForClick {
		stepSize = clickMoveStepSize
		maxDuration = clickMoveMaxDuration
	}

	frames := int(dist / stepSize)
	if frames < minMoveFrames {
		frames = minMoveFrames
	}

	// Sub-linear scaling: a move half the reference distance takes ~70% of
	// the cap, so short moves stay snappy without teleporting.
	duration := time.Duration(float64(maxDuration) * math.Sqrt(math.Min(1, dist/fullDurationDistance)))
	frameDelay := duration / time.Duration(frames)

	for i := 1; i <= frames; i++ {
		if err := a.token.Err(); err != nil {
			return err
		}
		t := float64(i) / float64(frames)
		eased := 1 - (1-t)*(1-t) // ease-out: fast start, gentle landing
		px := fromX + int(math.Round(float64(toX-fromX)*eased))
		py := fromY + int(math.Round(float64(toY-fromY)*eased))
		if err := a.in.MoveMouse(px, py); err != nil {
			return err
		}
		if frameDelay > 0 {
			if err := a.sleep(frameDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// Click moves to the target and issues count press/release pairs. The gap
// between pairs is shorter for double-clicks so the OS groups them.
func (a *Actuator) Click(x, y int, button platform.MouseButton, count int) error {
	if count < 1 {
		count = 1
	}
	if err := a.MoveTo(x, y, MoveForClick); err != nil {
		return err
	}
	if err := a.sleep(prePressPause); err != nil {
		return err
	}

	gap := multiClickGap
	if count == 2 {
		gap = doubleClickGap
	}
	for i := 0; i < count; i++ {
		if i > 0 {
			if err := a.sleep(gap); err != nil {
				return err
			}
		}
		if err := a.token.Err(); err != nil {
			return err
		}
		if err := a.in.ClickAt(x, y, button, i+1); err != nil {
			return err
		}
	}
	return nil
}

// DragSelect performs a shift-click range selection: shift goes down before
// the start click and stays held across the move and the end click, the way
// the gesture was recorded. Shift is released on every exit path so a
// failed drag never leaves the modifier held.
func (a *Actuator) DragSelect(from, to scale.Point, button platform.MouseButton) (err error) {
	if err := a.MoveTo(from.X, from.Y, MoveForClick); err != nil {
		return err
	}

	if err := a.in.KeyDown("shift"); err != nil {
		return err
	}
	defer func() {
		if upErr := a.in.KeyUp("shift"); upErr != nil && err == nil {
			err = upErr
		}
	}()

	if err := a.sleep(prePressPause); err != nil {
		return err
	}
	if err := a.in.ClickAt(from.X, from.Y, button, 1); err != nil {
		return err
	}
	if err := a.token.Err(); err != nil {
		return err
	}
	if err := a.MoveTo(to.X, to.Y, MoveForClick); err != nil {
		return err
	}
	return a.in.ClickAt(to.X, to.Y, button, 1)
}

// TypeText types text in chunks. Standalone steps re-focus the target app
// first; continuous steps only wait a short settle delay. When the text
// contains tabs and the next step is also a type, the text is split at tab
// boundaries and the app is re-focused after each tab, countering focus
// drift from tab traversal.
func (a *Actuator) TypeText(text string, opt TypeOptions) error {
	if text == "" {
		return nil
	}

	if opt.Continuation.Continuous() {
		if err := a.sleep(a.opts.ContinuousSettle); err != nil {
			return err
		}
	} else if opt.Refocus != nil {
		if err := opt.Refocus(); err != nil {
			return err
		}
	}

	if opt.NextIsType && strings.ContainsRune(text, '\t') {
		segments := strings.Split(text, "\t")
		for i, segment := range segments {
			if err := a.typeChunked(segment); err != nil {
				return err
			}
			if i == len(segments)-1 {
				break
			}
			if err := a.in.TapKey("tab"); err != nil {
				return err
			}
			if opt.Refocus != nil {
				if err := opt.Refocus(); err != nil {
					return err
				}
			}
		}
		return nil
	}

	return a.typeChunked(text)
}

func (a *Actuator) typeChunked(text string) error {
	runes := []rune(text)
	chunk := a.opts.TypingChunkSize

	for start := 0; start < len(runes); start += chunk {
		if err := a.token.Err(); err != nil {
			return err
		}
		if start > 0 {
			if err := a.sleep(a.opts.ChunkSettle); err != nil {
				return err
			}
		}

		end := start + chunk
		if end > len(runes) {
			end = len(runes)
		}
		for _, ch := range runes[start:end] {
			var err error
			switch ch {
			case '\t':
				err = a.in.TapKey("tab")
			case '\n':
				err = a.in.TapKey("return")
			default:
				err = a.in.TypeChar(ch)
			}
			if err != nil {
				return err
			}
			if a.opts.TypingInterval > 0 {
				if err := a.sleep(a.opts.TypingInterval); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Backspace taps the backspace key, honoring the continuous-editing
// settle/refocus rule like TypeText.
func (a *Actuator) Backspace(opt TypeOptions) error {
	if opt.Continuation.Continuous() {
		if err := a.sleep(a.opts.ContinuousSettle); err != nil {
			return err
		}
	} else if opt.Refocus != nil {
		if err := opt.Refocus(); err != nil {
			return err
		}
	}
	return a.in.TapKey("backspace")
}

var modifierNames = map[string]bool{
	"cmd": true, "command": true,
	"shift": true,
	"ctrl":  true, "control": true,
	"alt": true, "opt": true, "option": true,
}

// Hotkey presses a symbolic key combination: modifiers are held, primary
// keys tapped, modifiers released in reverse order. Held modifiers are
// released even when a tap fails.
func (a *Actuator) Hotkey(keys []string) (err error) {
	if len(keys) == 0 {
		return nil
	}

	var modifiers, primaries []string
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if modifierNames[k] {
			modifiers = append(modifiers, k)
		} else {
			primaries = append(primaries, k)
		}
	}

	var held []string
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			if upErr := a.in.KeyUp(held[i]); upErr != nil && err == nil {
				err = upErr
			}
		}
	}()

	for _, mod := range modifiers {
		if err := a.in.KeyDown(mod); err != nil {
			return err
		}
		held = append(held, mod)
		if err := a.sleep(keySequenceGap); err != nil {
			return err
		}
	}
	for _, key := range primaries {
		if err := a.token.Err(); err != nil {
			return err
		}
		if err := a.in.TapKey(key); err != nil {
			return err
		}
		if err := a.sleep(keySequenceGap); err != nil {
			return err
		}
	}
	return nil
}

// PlayKeySequence replays a literal recorded key-event sequence in exact
// press order. This path is preferred over Hotkey when a recording carries
// the raw events, since it reproduces interleavings a symbolic chord
// cannot. Any key still held when the sequence ends (or fails) is
// released.
func (a *Actuator) PlayKeySequence(events []workflow.KeyEvent) (err error) {
	var held []string
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			if upErr := a.in.KeyUp(held[i]); upErr != nil && err == nil {
				err = upErr
			}
		}
		held = nil
	}()

	for _, ev := range events {
		if err := a.token.Err(); err != nil {
			return err
		}

		switch ev.Kind {
		case "char":
			for _, ch := range ev.Char {
				if err := a.in.TypeChar(ch); err != nil {
					return err
				}
				break // recordings carry one character per event
			}
		case "key":
			if ev.Down {
				if err := a.in.KeyDown(ev.Key); err != nil {
					return err
				}
				held = append(held, ev.Key)
			} else {
				if err := a.in.KeyUp(ev.Key); err != nil {
					return err
				}
				held = removeHeld(held, ev.Key)
			}
		default:
			// Unknown event kinds are skipped, mirroring unknown steps.
			continue
		}
		if err := a.sleep(keySequenceGap); err != nil {
			return err
		}
	}
	return nil
}

func removeHeld(held []string, key string) []string {
	for i := len(held) - 1; i >= 0; i-- {
		if held[i] == key {
			return append(held[:i], held[i+1:]...)
		}
	}
	return held
}

// Scroll issues discrete scroll ticks. amount is the explicit tick count;
// when zero, it is derived from the recorded fractional delta × 100. A
// target point, when present, is moved to first so the scroll lands on the
// right surface.
func (a *Actuator) Scroll(at *scale.Point, amount int, deltaY float64) error {
	if amount == 0 && deltaY != 0 {
		amount = int(deltaY * 100)
	}
	if amount == 0 {
		return nil
	}

	if at != nil {
		if err := a.MoveTo(at.X, at.Y, MovePure); err != nil {
			return err
		}
	}

	dir := 1
	ticks := amount
	if amount < 0 {
		dir = -1
		ticks = -amount
	}
	for i := 0; i < ticks; i++ {
		if i > 0 && i%10 == 0 {
			// Brief pause so the target can keep up with long scrolls, and a
			// cancellation checkpoint.
			if err := a.sleep(10 * time.Millisecond); err != nil {
				return err
			}
		} else if err := a.token.Err(); err != nil {
			return err
		}
		if err := a.in.Scroll(dir, 0); err != nil {
			return err
		}
	}
	return nil
}
