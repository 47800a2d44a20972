// Package engine drives workflow replay: one step at a time, in order, with
// focus management, coordinate rescaling, per-step retries with exponential
// backoff, and cooperative cancellation between every wait and attempt.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/replaykit/replay-cli/internal/actuator"
	"github.com/replaykit/replay-cli/internal/config"
	"github.com/replaykit/replay-cli/internal/execlog"
	"github.com/replaykit/replay-cli/internal/perception"
	"github.com/replaykit/replay-cli/internal/platform"
	"github.com/replaykit/replay-cli/internal/safety"
	"github.com/replaykit/replay-cli/internal/scale"
	"github.com/replaykit/replay-cli/internal/workflow"
)

// ErrInvalidTarget marks a pointer step with neither literal coordinates
// nor a text target. Retrying cannot fix it, so it is never retried.
var ErrInvalidTarget = errors.New("step has no usable target")

// State is the lifecycle of one run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

const (
	defaultWaitTimeout  = 10 * time.Second
	findForClickTimeout = 5.0 // seconds, passed to the service

	clickSettle = 300 * time.Millisecond
	// Added on top of clickSettle when the next step types, anticipating
	// input-field focus latency.
	clickTypeSettle = 250 * time.Millisecond
	typeSettle      = 200 * time.Millisecond
	hotkeySettle    = 300 * time.Millisecond
	scrollSettle    = 200 * time.Millisecond

	backoffCap = 5 * time.Second
)

// TextFinder locates text on screen. Satisfied by *perception.Client.
type TextFinder interface {
	FindText(ctx context.Context, text string, timeoutSeconds float64) (perception.Match, error)
	WaitForText(ctx context.Context, token *safety.Token, text string, timeout, interval time.Duration) (perception.Match, error)
	WaitForTextGone(ctx context.Context, token *safety.Token, text string, timeout, interval time.Duration) (perception.Match, error)
}

// Actuation injects input. Satisfied by *actuator.Actuator.
type Actuation interface {
	MoveTo(x, y int, kind actuator.MoveKind) error
	Click(x, y int, button platform.MouseButton, count int) error
	DragSelect(from, to scale.Point, button platform.MouseButton) error
	TypeText(text string, opt actuator.TypeOptions) error
	Backspace(opt actuator.TypeOptions) error
	Hotkey(keys []string) error
	PlayKeySequence(events []workflow.KeyEvent) error
	Scroll(at *scale.Point, amount int, deltaY float64) error
}

// Focuser activates applications. Satisfied by *focus.Manager.
type Focuser interface {
	Focus(token *safety.Token, appName, bundleID string) error
}

// Deps are the engine's collaborators.
type Deps struct {
	Actuation Actuation
	Finder    TextFinder
	Focus     Focuser
	Screen    platform.Screen
	Log       *execlog.Log
	Token     *safety.Token
	Config    *config.Config
}

// Result summarizes a finished run.
type Result struct {
	RunID      string
	State      State
	StepsTotal int
	StepsDone  int
	FailedStep int // index of the aborting step, -1 if none
	Err        error
	Elapsed    time.Duration
}

// Engine executes one workflow at a time.
type Engine struct {
	act    Actuation
	finder TextFinder
	focus  Focuser
	screen platform.Screen
	log    *execlog.Log
	token  *safety.Token
	cfg    *config.Config

	settle func(time.Duration) error

	lastApp string
}

// New creates an engine. All deps are required except Focus and Finder,
// which may be nil when the run has no app or text steps.
func New(d Deps) *Engine {
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{
		act:    d.Actuation,
		finder: d.Finder,
		focus:  d.Focus,
		screen: d.Screen,
		log:    d.Log,
		token:  d.Token,
		cfg:    cfg,
		settle: d.Token.Sleep,
	}
}

// Run executes the workflow's steps in order. The returned Result is always
// non-nil; Result.Err carries the aborting error, if any. The context is
// cancelled internally when the safety token fires, so in-flight service
// calls unwind promptly.
func (e *Engine) Run(ctx context.Context, wf *workflow.Workflow) *Result {
	start := time.Now()
	res := &Result{
		RunID:      uuid.NewString(),
		State:      StateRunning,
		StepsTotal: len(wf.Steps),
		FailedStep: -1,
	}

	if e.cfg.BlockSensitiveText {
		for i := range wf.Steps {
			if err := safety.ValidateStep(&wf.Steps[i]); err != nil {
				res.State = StateFailed
				res.FailedStep = i
				res.Err = fmt.Errorf("step %d blocked: %w", i+1, err)
				res.Elapsed = time.Since(start)
				return res
			}
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.token.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	e.logf("run %s: %q, %d steps", res.RunID, wf.Name, len(wf.Steps))
	conts := workflow.Continuations(wf.Steps)

	for i := range wf.Steps {
		step := &wf.Steps[i]

		if err := e.token.Err(); err != nil {
			return e.finish(res, start, StateCancelled, i, err)
		}

		e.focusForStep(step)

		kind := step.Kind()
		if kind == workflow.ActionUnknown {
			e.logf("step %d/%d: unknown action %q, skipping", i+1, len(wf.Steps), step.Action)
			res.StepsDone++
			continue
		}

		e.logf("step %d/%d: %s", i+1, len(wf.Steps), step.Label())
		nextIsType := i+1 < len(wf.Steps) && wf.Steps[i+1].Kind() == workflow.ActionType

		if err := e.runWithRetries(ctx, step, conts[i], nextIsType); err != nil {
			if errors.Is(err, safety.ErrCancelled) {
				return e.finish(res, start, StateCancelled, i, err)
			}
			if step.ContinueOnError {
				e.logf("step %d failed (continuing): %v", i+1, err)
				res.StepsDone++
				continue
			}
			return e.finish(res, start, StateFailed, i, fmt.Errorf("step %d (%s): %w", i+1, step.Label(), err))
		}
		res.StepsDone++

		if err := e.settleAfter(kind, nextIsType); err != nil {
			return e.finish(res, start, StateCancelled, i, err)
		}
	}

	res.State = StateCompleted
	res.Elapsed = time.Since(start)
	e.logf("run %s completed in %s", res.RunID, res.Elapsed.Round(time.Millisecond))
	return res
}

func (e *Engine) finish(res *Result, start time.Time, state State, stepIndex int, err error) *Result {
	res.State = state
	res.FailedStep = stepIndex
	res.Err = err
	res.Elapsed = time.Since(start)
	e.logf("run %s %s: %v", res.RunID, state, err)
	return res
}

// focusForStep activates the step's target app when it differs from the
// last app focused. Focus failure is not fatal: the step may still work if
// the app is frontmost anyway, and its own retries cover the rest.
func (e *Engine) focusForStep(step *workflow.Step) {
	if step.AppName == "" && step.AppBundleID == "" {
		return
	}
	key := step.AppBundleID
	if key == "" {
		key = step.AppName
	}
	if key == e.lastApp {
		return
	}
	// Recorded even on failure so one unfocusable app is not hammered on
	// every following step.
	e.lastApp = key

	if e.focus == nil {
		return
	}
	if err := e.focus.Focus(e.token, step.AppName, step.AppBundleID); err != nil {
		e.logf("focus %s failed, proceeding anyway: %v", step.Label(), err)
	}
}

func (e *Engine) runWithRetries(ctx context.Context, step *workflow.Step, cont workflow.ContinuationKind, nextIsType bool) error {
	maxRetries := e.cfg.DefaultMaxRetries
	if step.MaxRetries != nil && *step.MaxRetries >= 0 {
		maxRetries = *step.MaxRetries
	}
	retryDelay := time.Duration(e.cfg.DefaultRetryDelayMs) * time.Millisecond
	if step.RetryDelayMs != nil && *step.RetryDelayMs > 0 {
		retryDelay = time.Duration(*step.RetryDelayMs) * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		if err := e.token.Err(); err != nil {
			return err
		}

		lastErr = e.executeStep(ctx, step, cont, nextIsType)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, safety.ErrCancelled) || errors.Is(lastErr, ErrInvalidTarget) {
			return lastErr
		}
		if attempt <= maxRetries {
			delay := backoff(attempt, retryDelay)
			e.logf("attempt %d/%d failed: %v (retrying in %s)", attempt, maxRetries+1, lastErr, delay)
			if err := e.token.Sleep(delay); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// backoff doubles the base delay per attempt, capped.
func backoff(attempt int, base time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	if d > backoffCap {
		return backoffCap
	}
	return d
}

func (e *Engine) executeStep(ctx context.Context, step *workflow.Step, cont workflow.ContinuationKind, nextIsType bool) error {
	switch step.Kind() {
	case workflow.ActionClick:
		return e.doClick(ctx, step)
	case workflow.ActionMove:
		return e.doMove(ctx, step)
	case workflow.ActionScroll:
		return e.doScroll(ctx, step)
	case workflow.ActionType:
		return e.act.TypeText(step.Text, e.typeOptions(step, cont, nextIsType))
	case workflow.ActionBackspace:
		return e.act.Backspace(e.typeOptions(step, cont, nextIsType))
	case workflow.ActionHotkey:
		if len(step.KeySequence) > 0 {
			// The literal recording reproduces interleavings a symbolic
			// chord cannot; prefer it when present.
			return e.act.PlayKeySequence(step.KeySequence)
		}
		return e.act.Hotkey(step.Keys)
	case workflow.ActionWait:
		return e.doWait(step)
	case workflow.ActionWaitForText:
		if e.finder == nil {
			return fmt.Errorf("%w: no text finder configured", perception.ErrUnavailable)
		}
		_, err := e.finder.WaitForText(ctx, e.token, step.Text, e.waitTimeout(step), e.pollInterval(step))
		return err
	case workflow.ActionWaitForTextGone:
		if e.finder == nil {
			return fmt.Errorf("%w: no text finder configured", perception.ErrUnavailable)
		}
		_, err := e.finder.WaitForTextGone(ctx, e.token, step.Text, e.waitTimeout(step), e.pollInterval(step))
		return err
	default:
		return nil
	}
}

// resolveTarget produces live-display coordinates for a pointer step.
// Literal recorded coordinates win over a text target; both are rescaled
// (or located) fresh on every attempt, so a retry sees current screen
// state.
func (e *Engine) resolveTarget(ctx context.Context, step *workflow.Step) (scale.Point, error) {
	if step.HasPoint() {
		return e.rescale(step, *step.X, *step.Y)
	}
	if step.FindByText != "" {
		if e.finder == nil {
			return scale.Point{}, fmt.Errorf("%w: no text finder configured", perception.ErrUnavailable)
		}
		match, err := e.finder.FindText(ctx, step.FindByText, findForClickTimeout)
		if err != nil {
			return scale.Point{}, err
		}
		if !match.Found {
			return scale.Point{}, fmt.Errorf("%w: %q", perception.ErrTargetNotFound, step.FindByText)
		}
		// Service coordinates are already in live-display space.
		return match.Center, nil
	}
	return scale.Point{}, ErrInvalidTarget
}

func (e *Engine) rescale(step *workflow.Step, x, y float64) (scale.Point, error) {
	p := scale.Point{X: int(x), Y: int(y)}
	recorded := scale.Size{W: step.ScreenW, H: step.ScreenH}
	w, h, err := e.screen.DisplaySize()
	if err != nil {
		return p, err
	}
	return scale.Rescale(p, recorded, scale.Size{W: w, H: h}), nil
}

func (e *Engine) doClick(ctx context.Context, step *workflow.Step) error {
	target, err := e.resolveTarget(ctx, step)
	if err != nil {
		return err
	}
	button := platform.ParseMouseButton(step.Button)

	if step.HasEndPoint() {
		end, err := e.rescale(step, *step.EndX, *step.EndY)
		if err != nil {
			return err
		}
		return e.act.DragSelect(target, end, button)
	}

	clicks := step.Clicks
	if clicks < 1 {
		clicks = 1
	}
	return e.act.Click(target.X, target.Y, button, clicks)
}

func (e *Engine) doMove(ctx context.Context, step *workflow.Step) error {
	target, err := e.resolveTarget(ctx, step)
	if err != nil {
		return err
	}
	return e.act.MoveTo(target.X, target.Y, actuator.MovePure)
}

func (e *Engine) doScroll(ctx context.Context, step *workflow.Step) error {
	var at *scale.Point
	if step.HasPoint() {
		p, err := e.rescale(step, *step.X, *step.Y)
		if err != nil {
			return err
		}
		at = &p
	}
	return e.act.Scroll(at, step.ScrollAmount, step.ScrollDeltaY)
}

func (e *Engine) doWait(step *workflow.Step) error {
	d := time.Duration(step.DurationMs) * time.Millisecond
	if d <= 0 && step.TimeoutSeconds > 0 {
		d = time.Duration(step.TimeoutSeconds * float64(time.Second))
	}
	if d <= 0 {
		return nil
	}
	return e.token.Sleep(d)
}

func (e *Engine) typeOptions(step *workflow.Step, cont workflow.ContinuationKind, nextIsType bool) actuator.TypeOptions {
	opt := actuator.TypeOptions{
		Continuation: cont,
		NextIsType:   nextIsType,
	}
	appName, bundleID := step.AppName, step.AppBundleID
	if appName == "" && bundleID == "" && e.lastApp != "" {
		appName = e.lastApp
	}
	if e.focus != nil && (appName != "" || bundleID != "") {
		opt.Refocus = func() error { return e.focus.Focus(e.token, appName, bundleID) }
	}
	return opt
}

// settleAfter gives the target app time to react before the next step. A
// click followed by typing gets an extra anticipation delay so the field is
// ready for input.
func (e *Engine) settleAfter(kind workflow.ActionKind, nextIsType bool) error {
	var d time.Duration
	switch kind {
	case workflow.ActionClick:
		d = clickSettle
		if nextIsType {
			d += clickTypeSettle
		}
	case workflow.ActionType, workflow.ActionBackspace:
		d = typeSettle
	case workflow.ActionHotkey:
		d = hotkeySettle
	case workflow.ActionScroll:
		d = scrollSettle
	}
	if d <= 0 {
		return nil
	}
	return e.settle(d)
}

func (e *Engine) waitTimeout(step *workflow.Step) time.Duration {
	if step.TimeoutSeconds > 0 {
		return time.Duration(step.TimeoutSeconds * float64(time.Second))
	}
	return defaultWaitTimeout
}

func (e *Engine) pollInterval(step *workflow.Step) time.Duration {
	if step.CheckIntervalMs > 0 {
		return time.Duration(step.CheckIntervalMs) * time.Millisecond
	}
	return time.Duration(e.cfg.PollIntervalMs) * time.Millisecond
}

func (e *Engine) logf(format string, args ...any) {
	if e.log != nil {
		e.log.Printf(format, args...)
	}
}
