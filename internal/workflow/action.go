package workflow

import "strings"

// ActionKind is the closed set of replayable step kinds. Steps with an
// unrecognized action decode to ActionUnknown and are skipped by the
// interpreter rather than failing the run.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionClick
	ActionType
	ActionHotkey
	ActionBackspace
	ActionScroll
	ActionMove
	ActionWait
	ActionWaitForText
	ActionWaitForTextGone
)

// ParseActionKind maps a recorded action name to its kind.
func ParseActionKind(s string) ActionKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "click":
		return ActionClick
	case "type":
		return ActionType
	case "hotkey":
		return ActionHotkey
	case "backspace":
		return ActionBackspace
	case "scroll":
		return ActionScroll
	case "move":
		return ActionMove
	case "wait":
		return ActionWait
	case "wait_for_text":
		return ActionWaitForText
	case "wait_for_text_disappear":
		return ActionWaitForTextGone
	default:
		return ActionUnknown
	}
}

func (k ActionKind) String() string {
	switch k {
	case ActionClick:
		return "click"
	case ActionType:
		return "type"
	case ActionHotkey:
		return "hotkey"
	case ActionBackspace:
		return "backspace"
	case ActionScroll:
		return "scroll"
	case ActionMove:
		return "move"
	case ActionWait:
		return "wait"
	case ActionWaitForText:
		return "wait_for_text"
	case ActionWaitForTextGone:
		return "wait_for_text_disappear"
	default:
		return "unknown"
	}
}

// ContinuationKind describes how a step relates to the step before it.
// Consecutive click→type→backspace steps are treated as editing one
// still-focused input field, so continuous type/backspace steps skip
// re-focusing the target application.
type ContinuationKind int

const (
	ContinuationNone ContinuationKind = iota
	ContinuationAfterClick
	ContinuationAfterType
	ContinuationAfterBackspace
)

func (c ContinuationKind) String() string {
	switch c {
	case ContinuationAfterClick:
		return "after_click"
	case ContinuationAfterType:
		return "after_type"
	case ContinuationAfterBackspace:
		return "after_backspace"
	default:
		return "none"
	}
}

// Continuous reports whether the step follows an editing step and may
// assume the input field kept focus.
func (c ContinuationKind) Continuous() bool {
	return c != ContinuationNone
}

// Continuations derives the continuation kind of every step from the kind
// of the step before it. Computed once per workflow; steps themselves stay
// immutable during execution.
func Continuations(steps []Step) []ContinuationKind {
	conts := make([]ContinuationKind, len(steps))
	for i := range steps {
		if i == 0 {
			conts[i] = ContinuationNone
			continue
		}
		switch steps[i-1].Kind() {
		case ActionClick:
			conts[i] = ContinuationAfterClick
		case ActionType:
			conts[i] = ContinuationAfterType
		case ActionBackspace:
			conts[i] = ContinuationAfterBackspace
		default:
			conts[i] = ContinuationNone
		}
	}
	return conts
}
