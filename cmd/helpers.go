package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/replaykit/replay-cli/internal/store"
	"github.com/replaykit/replay-cli/internal/workflow"
)

// loadWorkflowArg resolves the workflow a command operates on: a file path
// argument, or --id against the store. Exactly one must be given.
func loadWorkflowArg(cmd *cobra.Command, args []string) (*workflow.Workflow, error) {
	id, _ := cmd.Flags().GetInt64("id")

	if len(args) > 0 && id != 0 {
		return nil, fmt.Errorf("give either a workflow file or --id, not both")
	}
	if len(args) > 0 {
		return workflow.LoadFile(args[0])
	}
	if id != 0 {
		return loadStoredWorkflow(id)
	}
	return nil, fmt.Errorf("no workflow given: pass a file path or --id")
}

func loadStoredWorkflow(id int64) (*workflow.Workflow, error) {
	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Get(id)
}

// StringParam extracts a string parameter from MCP tool arguments.
func StringParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

// IntParam extracts an integer parameter from MCP tool arguments. JSON
// numbers arrive as float64.
func IntParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// FloatParam extracts a float parameter from MCP tool arguments.
func FloatParam(params map[string]interface{}, key string, def float64) float64 {
	if v, ok := params[key].(float64); ok {
		return v
	}
	return def
}

// BoolParam extracts a boolean parameter from MCP tool arguments.
func BoolParam(params map[string]interface{}, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
