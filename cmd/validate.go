package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/replaykit/replay-cli/internal/output"
	"github.com/replaykit/replay-cli/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate [workflow-file]",
	Short: "Check a workflow for problems without running it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Int64("id", 0, "Validate a stored workflow by id")
}

func runValidate(cmd *cobra.Command, args []string) error {
	wf, err := loadWorkflowArg(cmd, args)
	if err != nil {
		return err
	}

	report := validateWorkflow(wf)
	if err := output.Print(report); err != nil {
		return err
	}
	if !report.Valid {
		return fmt.Errorf("workflow has %d problem(s)", len(report.Problems))
	}
	return nil
}

// validateWorkflow runs the static checks replay would fail on: unknown
// actions, pointer steps without any target, waits without text.
func validateWorkflow(wf *workflow.Workflow) output.ValidationReport {
	report := output.ValidationReport{
		Workflow: wf.Name,
		Steps:    len(wf.Steps),
	}

	for i := range wf.Steps {
		step := &wf.Steps[i]
		at := func(msg string) {
			report.Problems = append(report.Problems, fmt.Sprintf("step %d (%s): %s", i+1, step.Label(), msg))
		}

		switch step.Kind() {
		case workflow.ActionUnknown:
			at(fmt.Sprintf("unknown action %q, will be skipped", step.Action))
		case workflow.ActionClick, workflow.ActionMove:
			if !step.HasPoint() && step.FindByText == "" {
				at("no coordinates and no text target")
			}
		case workflow.ActionType:
			if step.Text == "" {
				at("type step with empty text")
			}
		case workflow.ActionHotkey:
			if len(step.Keys) == 0 && len(step.KeySequence) == 0 {
				at("hotkey step with no keys and no key sequence")
			}
		case workflow.ActionWaitForText, workflow.ActionWaitForTextGone:
			if step.Text == "" {
				at("wait step with no text to look for")
			}
		case workflow.ActionScroll:
			if step.ScrollAmount == 0 && step.ScrollDeltaY == 0 {
				at("scroll step with zero amount")
			}
		}
	}

	report.Valid = len(report.Problems) == 0
	return report
}
