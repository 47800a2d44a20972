package cmd

import (
	"github.com/spf13/cobra"

	"github.com/replaykit/replay-cli/internal/output"
	"github.com/replaykit/replay-cli/internal/store"
)

// ListResult is the top-level output of the `list` command.
type ListResult struct {
	Workflows []store.Summary `yaml:"workflows" json:"workflows"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflows stored in the database",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	sums, err := s.List()
	if err != nil {
		return err
	}
	return output.Print(ListResult{Workflows: sums})
}
