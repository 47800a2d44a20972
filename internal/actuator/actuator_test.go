package actuator

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/replaykit/replay-cli/internal/platform"
	"github.com/replaykit/replay-cli/internal/safety"
	"github.com/replaykit/replay-cli/internal/scale"
	"github.com/replaykit/replay-cli/internal/workflow"
)

// fakeInputter records every injected event. Pointer moves update the
// reported position unless stuck is set, which simulates the OS silently
// dropping events (missing accessibility permission).
type fakeInputter struct {
	calls []string
	x, y  int
	stuck bool

	failClickAt int // 1-based click index that fails; 0 means never
	clickCount  int
	tapErrOn    string
}

func (f *fakeInputter) MoveMouse(x, y int) error {
	f.calls = append(f.calls, fmt.Sprintf("move:%d,%d", x, y))
	if !f.stuck {
		f.x, f.y = x, y
	}
	return nil
}

func (f *fakeInputter) MousePosition() (int, int, error) { return f.x, f.y, nil }

func (f *fakeInputter) ClickAt(x, y int, button platform.MouseButton, clickState int) error {
	f.calls = append(f.calls, fmt.Sprintf("click:%d,%d,%s,%d", x, y, button, clickState))
	f.clickCount++
	if f.failClickAt != 0 && f.clickCount == f.failClickAt {
		return errors.New("click rejected")
	}
	return nil
}

func (f *fakeInputter) PressMouse(x, y int, button platform.MouseButton) error {
	f.calls = append(f.calls, fmt.Sprintf("press:%d,%d", x, y))
	return nil
}

func (f *fakeInputter) ReleaseMouse(x, y int, button platform.MouseButton) error {
	f.calls = append(f.calls, fmt.Sprintf("release:%d,%d", x, y))
	return nil
}

func (f *fakeInputter) Scroll(dy, dx int) error {
	f.calls = append(f.calls, fmt.Sprintf("scroll:%d", dy))
	return nil
}

func (f *fakeInputter) TypeChar(ch rune) error {
	f.calls = append(f.calls, "char:"+string(ch))
	return nil
}

func (f *fakeInputter) KeyDown(name string) error {
	f.calls = append(f.calls, "down:"+name)
	return nil
}

func (f *fakeInputter) KeyUp(name string) error {
	f.calls = append(f.calls, "up:"+name)
	return nil
}

func (f *fakeInputter) TapKey(name string) error {
	f.calls = append(f.calls, "tap:"+name)
	if name == f.tapErrOn {
		return errors.New("tap failed")
	}
	return nil
}

func (f *fakeInputter) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func newFast(in *fakeInputter) (*Actuator, *safety.Token) {
	token := safety.NewToken()
	a := New(in, token, DefaultOptions())
	// Skip real delays; still observe cancellation.
	a.sleep = func(time.Duration) error { return token.Err() }
	return a, token
}

func TestMoveToAnimatesAndArrives(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	if err := a.MoveTo(400, 300, MoveForClick); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	if in.x != 400 || in.y != 300 {
		t.Fatalf("pointer at (%d, %d), want (400, 300)", in.x, in.y)
	}
	if got := in.count("move:"); got < minMoveFrames {
		t.Fatalf("only %d move frames, want at least %d", got, minMoveFrames)
	}
}

func TestMoveToAlreadyArrived(t *testing.T) {
	in := &fakeInputter{x: 102, y: 99}
	a, _ := newFast(in)

	if err := a.MoveTo(100, 100, MovePure); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	if got := in.count("move:"); got != 0 {
		t.Fatalf("move within arrival threshold still injected %d events", got)
	}
}

func TestMoveToDeniedWhenEventsDropped(t *testing.T) {
	in := &fakeInputter{stuck: true}
	a, _ := newFast(in)

	err := a.MoveTo(500, 500, MovePure)
	if !errors.Is(err, ErrActuationDenied) {
		t.Fatalf("err = %v, want ErrActuationDenied", err)
	}
	// Every attempt re-animates from scratch.
	if got := in.count("move:"); got < moveMaxAttempts*minMoveFrames {
		t.Fatalf("only %d move frames across %d attempts", got, moveMaxAttempts)
	}
}

func TestMoveToCancelled(t *testing.T) {
	in := &fakeInputter{}
	a, token := newFast(in)
	token.Cancel()

	if err := a.MoveTo(200, 200, MovePure); !errors.Is(err, safety.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if got := in.count("move:"); got != 0 {
		t.Fatalf("cancelled move injected %d events", got)
	}
}

func TestClickStatesCount(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	if err := a.Click(50, 60, platform.MouseLeft, 2); err != nil {
		t.Fatalf("Click: %v", err)
	}
	want := []string{"click:50,60,left,1", "click:50,60,left,2"}
	var got []string
	for _, c := range in.calls {
		if strings.HasPrefix(c, "click:") {
			got = append(got, c)
		}
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("clicks = %v, want %v", got, want)
	}
}

func TestDragSelectReleasesShiftOnFailure(t *testing.T) {
	// Shift is already held by the time either click happens, so a failure
	// at either point must still release it.
	for _, failAt := range []int{1, 2} {
		in := &fakeInputter{failClickAt: failAt}
		a, _ := newFast(in)

		err := a.DragSelect(scale.Point{X: 10, Y: 10}, scale.Point{X: 200, Y: 10}, platform.MouseLeft)
		if err == nil {
			t.Fatalf("DragSelect succeeded despite click %d failing", failAt)
		}
		if in.count("down:shift") != 1 || in.count("up:shift") != 1 {
			t.Fatalf("shift not released after click %d failure: %v", failAt, in.calls)
		}
	}
}

func TestDragSelectHoldsShiftAcrossMove(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	if err := a.DragSelect(scale.Point{X: 10, Y: 10}, scale.Point{X: 300, Y: 10}, platform.MouseLeft); err != nil {
		t.Fatalf("DragSelect: %v", err)
	}

	// Order: shift down, first click, move, second click, shift up. Both
	// clicks land while shift is held.
	var idxDown, idxUp, idxFirstClick, idxSecondClick int
	clicks := 0
	for i, c := range in.calls {
		switch {
		case c == "down:shift":
			idxDown = i
		case c == "up:shift":
			idxUp = i
		case strings.HasPrefix(c, "click:"):
			clicks++
			if clicks == 1 {
				idxFirstClick = i
			} else if clicks == 2 {
				idxSecondClick = i
			}
		}
	}
	if clicks != 2 {
		t.Fatalf("got %d clicks, want 2", clicks)
	}
	if !(idxDown < idxFirstClick && idxFirstClick < idxSecondClick && idxSecondClick < idxUp) {
		t.Fatalf("shift not held across both clicks: down=%d click1=%d click2=%d up=%d", idxDown, idxFirstClick, idxSecondClick, idxUp)
	}
}

func TestTypeTextChunked(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	text := strings.Repeat("x", 60)
	if err := a.TypeText(text, TypeOptions{}); err != nil {
		t.Fatalf("TypeText: %v", err)
	}
	if got := in.count("char:"); got != 60 {
		t.Fatalf("typed %d chars, want 60", got)
	}
}

func TestTypeTextSpecialKeys(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	if err := a.TypeText("ab\tcd\n", TypeOptions{}); err != nil {
		t.Fatalf("TypeText: %v", err)
	}
	if got := in.count("tap:tab"); got != 1 {
		t.Fatalf("tab tapped %d times, want 1", got)
	}
	if got := in.count("tap:return"); got != 1 {
		t.Fatalf("return tapped %d times, want 1", got)
	}
	if got := in.count("char:"); got != 4 {
		t.Fatalf("typed %d plain chars, want 4", got)
	}
}

func TestTypeTextTabSplitRefocuses(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	refocused := 0
	opt := TypeOptions{
		NextIsType: true,
		Refocus:    func() error { refocused++; return nil },
	}
	if err := a.TypeText("user\tpass", opt); err != nil {
		t.Fatalf("TypeText: %v", err)
	}
	// Once up front (standalone step), once after the tab.
	if refocused != 2 {
		t.Fatalf("refocused %d times, want 2", refocused)
	}
	if got := in.count("tap:tab"); got != 1 {
		t.Fatalf("tab tapped %d times, want 1", got)
	}
}

func TestTypeTextContinuousSkipsRefocus(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	refocused := 0
	opt := TypeOptions{
		Continuation: workflow.ContinuationAfterClick,
		Refocus:      func() error { refocused++; return nil },
	}
	if err := a.TypeText("hello", opt); err != nil {
		t.Fatalf("TypeText: %v", err)
	}
	if refocused != 0 {
		t.Fatalf("continuous type refocused %d times, want 0", refocused)
	}
}

func TestTypeTextCancelled(t *testing.T) {
	in := &fakeInputter{}
	a, token := newFast(in)
	token.Cancel()

	if err := a.TypeText("abc", TypeOptions{}); !errors.Is(err, safety.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if got := in.count("char:"); got != 0 {
		t.Fatalf("cancelled type still injected %d chars", got)
	}
}

func TestHotkeyOrdering(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	if err := a.Hotkey([]string{"cmd", "shift", "s"}); err != nil {
		t.Fatalf("Hotkey: %v", err)
	}
	want := []string{"down:cmd", "down:shift", "tap:s", "up:shift", "up:cmd"}
	if len(in.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", in.calls, want)
	}
	for i := range want {
		if in.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", in.calls, want)
		}
	}
}

func TestHotkeyReleasesModifiersOnTapFailure(t *testing.T) {
	in := &fakeInputter{tapErrOn: "s"}
	a, _ := newFast(in)

	if err := a.Hotkey([]string{"cmd", "s"}); err == nil {
		t.Fatal("Hotkey succeeded despite tap failure")
	}
	if in.count("down:cmd") != in.count("up:cmd") {
		t.Fatalf("cmd left held after failure: %v", in.calls)
	}
}

func TestPlayKeySequencePreservesOrder(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	events := []workflow.KeyEvent{
		{Kind: "key", Key: "ctrl", Down: true},
		{Kind: "char", Char: "c"},
		{Kind: "key", Key: "ctrl", Down: false},
	}
	if err := a.PlayKeySequence(events); err != nil {
		t.Fatalf("PlayKeySequence: %v", err)
	}
	want := []string{"down:ctrl", "char:c", "up:ctrl"}
	if len(in.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", in.calls, want)
	}
	for i := range want {
		if in.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", in.calls, want)
		}
	}
}

func TestPlayKeySequenceReleasesDanglingKeys(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	// A truncated recording that never releases ctrl.
	events := []workflow.KeyEvent{
		{Kind: "key", Key: "ctrl", Down: true},
		{Kind: "char", Char: "c"},
	}
	if err := a.PlayKeySequence(events); err != nil {
		t.Fatalf("PlayKeySequence: %v", err)
	}
	if in.count("up:ctrl") != 1 {
		t.Fatalf("dangling ctrl not released: %v", in.calls)
	}
}

func TestScrollDerivesTicksFromDelta(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	if err := a.Scroll(nil, 0, -0.05); err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if got := in.count("scroll:-1"); got != 5 {
		t.Fatalf("got %d downward ticks, want 5", got)
	}
}

func TestScrollMovesToTargetFirst(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	at := scale.Point{X: 640, Y: 400}
	if err := a.Scroll(&at, 3, 0); err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if in.x != 640 || in.y != 400 {
		t.Fatalf("pointer at (%d, %d), want scroll target (640, 400)", in.x, in.y)
	}
	if got := in.count("scroll:1"); got != 3 {
		t.Fatalf("got %d upward ticks, want 3", got)
	}
}

func TestScrollZeroIsNoOp(t *testing.T) {
	in := &fakeInputter{}
	a, _ := newFast(in)

	if err := a.Scroll(nil, 0, 0); err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if len(in.calls) != 0 {
		t.Fatalf("zero scroll injected events: %v", in.calls)
	}
}
