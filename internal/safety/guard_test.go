package safety

import (
	"errors"
	"testing"
	"time"

	"github.com/replaykit/replay-cli/internal/workflow"
)

func TestValidateStepBlocksSensitiveText(t *testing.T) {
	cases := []struct {
		text    string
		blocked bool
	}{
		{"hello world", false},
		{"my password is hunter2", true},
		{"PASSWORD", true},
		{"enter your credit card", true},
		{"ssn please", true},
		{"4111 1111 1111 1111", true},
		{"order 12345", false},
		{"", false},
	}
	for _, tc := range cases {
		step := &workflow.Step{Action: "type", Text: tc.text}
		err := ValidateStep(step)
		if tc.blocked && err == nil {
			t.Errorf("ValidateStep(%q) allowed sensitive text", tc.text)
		}
		if !tc.blocked && err != nil {
			t.Errorf("ValidateStep(%q) = %v", tc.text, err)
		}
	}
}

func TestValidateStepIgnoresNonTypeSteps(t *testing.T) {
	// The same text in a wait step is a lookup target, not injected input.
	step := &workflow.Step{Action: "wait_for_text", Text: "password"}
	if err := ValidateStep(step); err != nil {
		t.Fatalf("ValidateStep: %v", err)
	}
}

func TestCountdownCancellable(t *testing.T) {
	token := NewToken()
	go func() {
		time.Sleep(50 * time.Millisecond)
		token.Cancel()
	}()

	start := time.Now()
	err := Countdown(token, 60)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("countdown did not unwind promptly")
	}
}

func TestCountdownZeroIsImmediate(t *testing.T) {
	if err := Countdown(NewToken(), 0); err != nil {
		t.Fatalf("Countdown(0): %v", err)
	}
}

type guardWM struct {
	front     string
	activated []string
}

func (g *guardWM) ActivateBundle(string) error { return nil }
func (g *guardWM) ActivateApp(name string) error {
	g.activated = append(g.activated, name)
	return nil
}
func (g *guardWM) LaunchApp(string) error           { return nil }
func (g *guardWM) FrontmostApp() (string, int, error) { return g.front, 42, nil }

func TestWindowGuardSaveRestore(t *testing.T) {
	wm := &guardWM{front: "Terminal"}
	guard := NewWindowGuard(wm)

	if err := guard.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if guard.SavedApp() != "Terminal" {
		t.Fatalf("saved app = %q", guard.SavedApp())
	}
	if err := guard.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(wm.activated) != 1 || wm.activated[0] != "Terminal" {
		t.Fatalf("activated = %v", wm.activated)
	}
}

func TestWindowGuardRestoreWithoutSave(t *testing.T) {
	guard := NewWindowGuard(&guardWM{})
	if err := guard.Restore(); err != nil {
		t.Fatalf("Restore without Save: %v", err)
	}
}
