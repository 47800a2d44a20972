package safety

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/replaykit/replay-cli/internal/platform"
	"github.com/replaykit/replay-cli/internal/workflow"
)

// WindowGuard records the frontmost application before a run so it can be
// restored afterwards, regardless of how the run ended.
type WindowGuard struct {
	wm  platform.WindowManager
	app string
}

// NewWindowGuard creates a guard over the given window manager.
func NewWindowGuard(wm platform.WindowManager) *WindowGuard {
	return &WindowGuard{wm: wm}
}

// Save captures the currently frontmost application.
func (g *WindowGuard) Save() error {
	if g.wm == nil {
		return nil
	}
	name, _, err := g.wm.FrontmostApp()
	if err != nil {
		return fmt.Errorf("failed to record frontmost app: %w", err)
	}
	g.app = name
	return nil
}

// Restore re-activates the application recorded by Save. Best-effort: the
// app may have quit during the run.
func (g *WindowGuard) Restore() error {
	if g.wm == nil || g.app == "" {
		return nil
	}
	return g.wm.ActivateApp(g.app)
}

// SavedApp returns the app name captured by Save, if any.
func (g *WindowGuard) SavedApp() string {
	return g.app
}

// Countdown waits the given number of seconds before a run starts, giving
// the operator a last chance to abort. Cancellable like every other wait.
func Countdown(token *Token, seconds int) error {
	for i := 0; i < seconds; i++ {
		if err := token.Sleep(time.Second); err != nil {
			return err
		}
	}
	return nil
}

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpassword\b`),
	regexp.MustCompile(`(?i)\bcredit\s*card\b`),
	regexp.MustCompile(`(?i)\bssn\b`),
	regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`), // card-number shaped digit runs
}

// ValidateStep rejects type steps whose text looks like credentials or card
// data. Opt-in via the [Safety] blockSensitiveText config key.
func ValidateStep(step *workflow.Step) error {
	if step.Kind() != workflow.ActionType {
		return nil
	}
	text := strings.TrimSpace(step.Text)
	if text == "" {
		return nil
	}
	for _, pat := range sensitivePatterns {
		if pat.MatchString(text) {
			return fmt.Errorf("blocked potentially sensitive input in step %q", step.Description)
		}
	}
	return nil
}
