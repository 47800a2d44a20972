package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/replaykit/replay-cli/internal/output"
	"github.com/replaykit/replay-cli/internal/perception"
)

var findTextCmd = &cobra.Command{
	Use:   "find-text <text>",
	Short: "Locate text on screen via the perception service",
	Long: `Ask the perception service where the given text currently is on screen.
Useful for checking the service is up and for probing what a text-targeted
click would resolve to.`,
	Args: cobra.ExactArgs(1),
	RunE: runFindText,
}

func init() {
	rootCmd.AddCommand(findTextCmd)
	findTextCmd.Flags().Float64("timeout", 5, "Seconds the service may spend searching")
}

func runFindText(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetFloat64("timeout")

	client := perception.NewClient(cfg.PerceptionURL, time.Duration(cfg.PerceptionTimeoutMs)*time.Millisecond)
	match, err := client.FindText(cmd.Context(), args[0], timeout)
	if err != nil {
		return err
	}

	report := output.FindTextReport{Found: match.Found}
	if match.Found {
		report.X = match.Center.X
		report.Y = match.Center.Y
		report.Text = match.Text
		report.Confidence = match.Confidence
	}
	if err := output.Print(report); err != nil {
		return err
	}
	if !match.Found {
		return fmt.Errorf("text %q not found on screen", args[0])
	}
	return nil
}
