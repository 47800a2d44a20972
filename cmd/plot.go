package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/replaykit/replay-cli/internal/scale"
	"github.com/replaykit/replay-cli/internal/trace"
)

var plotCmd = &cobra.Command{
	Use:   "plot [workflow-file]",
	Short: "Render a workflow's pointer path to a PNG",
	Long: `Draw the workflow's pointer steps as numbered markers connected in
execution order, rescaled onto the requested canvas. Lets you eyeball
where a recording will click before replaying it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlot,
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().Int64("id", 0, "Plot a stored workflow by id")
	plotCmd.Flags().String("out", "trace.png", "Output PNG path")
	plotCmd.Flags().Int("width", 1920, "Canvas width in pixels")
	plotCmd.Flags().Int("height", 1080, "Canvas height in pixels")
}

func runPlot(cmd *cobra.Command, args []string) error {
	wf, err := loadWorkflowArg(cmd, args)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer f.Close()

	if err := trace.WritePNG(f, wf, scale.Size{W: width, H: height}); err != nil {
		return fmt.Errorf("failed to render trace: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", out, width, height)
	return nil
}
