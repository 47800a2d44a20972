package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/replaykit/replay-cli/internal/actuator"
	"github.com/replaykit/replay-cli/internal/engine"
	"github.com/replaykit/replay-cli/internal/execlog"
	"github.com/replaykit/replay-cli/internal/focus"
	"github.com/replaykit/replay-cli/internal/output"
	"github.com/replaykit/replay-cli/internal/perception"
	"github.com/replaykit/replay-cli/internal/platform"
	"github.com/replaykit/replay-cli/internal/safety"
	"github.com/replaykit/replay-cli/internal/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run [workflow-file]",
	Short: "Replay a workflow against the live desktop",
	Long: `Replay a recorded workflow step by step: focus the target app, rescale
coordinates to the current display, and inject clicks, typing and hotkeys
with per-step retries.

Press ESC or Ctrl-C during the run to abort; the current gesture unwinds
and no further input is injected.

Examples:
  replay-cli run login.yaml
  replay-cli run --id 3 --countdown 3
  replay-cli run checkout.json --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int64("id", 0, "Run a stored workflow by id")
	runCmd.Flags().Bool("dry-run", false, "Validate and describe the workflow without injecting input")
	runCmd.Flags().Int("countdown", -1, "Seconds to wait before starting (-1: use config)")
	runCmd.Flags().Bool("no-restore", false, "Do not restore the previously focused app afterwards")
}

func runRun(cmd *cobra.Command, args []string) error {
	wf, err := loadWorkflowArg(cmd, args)
	if err != nil {
		return err
	}

	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		report := validateWorkflow(wf)
		if err := output.Print(report); err != nil {
			return err
		}
		if !report.Valid {
			return fmt.Errorf("workflow has %d problem(s)", len(report.Problems))
		}
		return nil
	}

	token := safety.NewToken()
	log := execlog.New(os.Stderr)

	if cfg.AbortKeyEnabled {
		listener := safety.NewAbortListener(token)
		if err := listener.Start(); err == nil {
			defer listener.Stop()
		}
	}

	eng, guard, err := buildEngine(token, log)
	if err != nil {
		return err
	}

	noRestore, _ := cmd.Flags().GetBool("no-restore")
	if cfg.RestoreWindows && !noRestore {
		if err := guard.Save(); err == nil {
			defer guard.Restore()
		}
	}

	countdown, _ := cmd.Flags().GetInt("countdown")
	if countdown < 0 {
		countdown = cfg.CountdownSeconds
	}
	if err := safety.Countdown(token, countdown); err != nil {
		return err
	}

	res := eng.Run(cmd.Context(), wf)
	report := runReport(wf, res, log)
	if err := output.Print(report); err != nil {
		return err
	}
	if res.Err != nil {
		return fmt.Errorf("replay %s: %w", res.State, res.Err)
	}
	return nil
}

// buildEngine wires the replay engine against the live platform provider.
func buildEngine(token *safety.Token, log *execlog.Log) (*engine.Engine, *safety.WindowGuard, error) {
	provider, err := platform.NewProvider()
	if err != nil {
		return nil, nil, err
	}

	opts := actuator.DefaultOptions()
	opts.TypingChunkSize = cfg.TypingChunkSize
	opts.TypingInterval = time.Duration(cfg.TypingIntervalMs) * time.Millisecond

	eng := engine.New(engine.Deps{
		Actuation: actuator.New(provider.Inputter, token, opts),
		Finder:    perception.NewClient(cfg.PerceptionURL, time.Duration(cfg.PerceptionTimeoutMs)*time.Millisecond),
		Focus:     focus.NewManager(provider.WindowManager, log),
		Screen:    provider.Screen,
		Log:       log,
		Token:     token,
		Config:    cfg,
	})
	return eng, safety.NewWindowGuard(provider.WindowManager), nil
}

func runReport(wf *workflow.Workflow, res *engine.Result, log *execlog.Log) output.RunReport {
	report := output.RunReport{
		RunID:      res.RunID,
		Workflow:   wf.Name,
		State:      res.State.String(),
		StepsTotal: res.StepsTotal,
		StepsDone:  res.StepsDone,
		ElapsedMs:  res.Elapsed.Milliseconds(),
	}
	if res.FailedStep >= 0 {
		report.FailedStep = res.FailedStep + 1
	}
	if res.Err != nil {
		report.Error = res.Err.Error()
	}
	if log != nil {
		report.Log = log.Lines()
	}
	return report
}

// executeWorkflow runs a workflow end to end with fresh wiring. Used by the
// MCP server, which has no cobra command context.
func executeWorkflow(ctx context.Context, wf *workflow.Workflow, token *safety.Token) (output.RunReport, error) {
	log := execlog.New(nil)

	eng, guard, err := buildEngine(token, log)
	if err != nil {
		return output.RunReport{}, err
	}

	if cfg.RestoreWindows {
		if err := guard.Save(); err == nil {
			defer guard.Restore()
		}
	}
	if err := safety.Countdown(token, cfg.CountdownSeconds); err != nil {
		return output.RunReport{}, err
	}

	res := eng.Run(ctx, wf)
	return runReport(wf, res, log), res.Err
}
