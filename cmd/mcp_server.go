package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/replaykit/replay-cli/internal/output"
	"github.com/replaykit/replay-cli/internal/perception"
	"github.com/replaykit/replay-cli/internal/safety"
	"github.com/replaykit/replay-cli/internal/store"
	"github.com/replaykit/replay-cli/internal/workflow"
)

// mcpServer exposes replay tools over MCP. One workflow runs at a time;
// stop_replay cancels the active run's token from a concurrent tool call.
type mcpServer struct {
	mcp *mcpserver.MCPServer

	runMu sync.Mutex // serializes workflow runs

	tokenMu sync.Mutex
	token   *safety.Token // token of the active run, nil when idle
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	Transport string
	Port      int
}

func newMCPServer() *mcpServer {
	s := &mcpServer{}
	s.mcp = mcpserver.NewMCPServer("replay-cli", "1.0.0")
	s.registerTools()
	return s
}

// serve starts the MCP server with the configured transport.
func (s *mcpServer) serve(cfg MCPConfig) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *mcpServer) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("run_workflow",
			mcp.WithDescription("Replay a workflow against the live desktop. Give either a stored workflow id or a workflow file path. Blocks until the run finishes or is stopped."),
			mcp.WithNumber("id", mcp.Description("Stored workflow id")),
			mcp.WithString("file", mcp.Description("Workflow file path (YAML or JSON)")),
		),
		s.handleRunWorkflow,
	)

	s.mcp.AddTool(
		mcp.NewTool("list_workflows",
			mcp.WithDescription("List workflows stored in the database"),
		),
		s.handleListWorkflows,
	)

	s.mcp.AddTool(
		mcp.NewTool("find_text",
			mcp.WithDescription("Locate text on the current screen via the perception service"),
			mcp.WithString("text", mcp.Description("Text to look for"), mcp.Required()),
			mcp.WithNumber("timeout", mcp.Description("Seconds the service may spend searching (default 5)")),
		),
		s.handleFindText,
	)

	s.mcp.AddTool(
		mcp.NewTool("stop_replay",
			mcp.WithDescription("Abort the currently running workflow. No-op when nothing is running."),
		),
		s.handleStopReplay,
	)
}

func toYAMLResult(v interface{}) *mcp.CallToolResult {
	b, err := yaml.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(b))
}

func (s *mcpServer) handleRunWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	id := int64(IntParam(params, "id", 0))
	file := StringParam(params, "file", "")

	var wf *workflow.Workflow
	var err error
	switch {
	case file != "":
		wf, err = workflow.LoadFile(file)
	case id != 0:
		wf, err = loadStoredWorkflow(id)
	default:
		return mcp.NewToolResultError("give either id or file"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	token := safety.NewToken()
	s.setToken(token)
	defer s.setToken(nil)

	report, runErr := executeWorkflow(ctx, wf, token)
	if runErr != nil {
		// The report still describes how far the run got.
		if b, err := yaml.Marshal(report); err == nil {
			return mcp.NewToolResultError(string(b)), nil
		}
		return mcp.NewToolResultError(runErr.Error()), nil
	}
	return toYAMLResult(report), nil
}

func (s *mcpServer) handleListWorkflows(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer st.Close()

	sums, err := st.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toYAMLResult(ListResult{Workflows: sums}), nil
}

func (s *mcpServer) handleFindText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	text := StringParam(params, "text", "")
	if text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}
	timeout := FloatParam(params, "timeout", 5)

	client := perception.NewClient(cfg.PerceptionURL, time.Duration(cfg.PerceptionTimeoutMs)*time.Millisecond)
	match, err := client.FindText(ctx, text, timeout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report := output.FindTextReport{Found: match.Found}
	if match.Found {
		report.X = match.Center.X
		report.Y = match.Center.Y
		report.Text = match.Text
		report.Confidence = match.Confidence
	}
	return toYAMLResult(report), nil
}

func (s *mcpServer) handleStopReplay(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.tokenMu.Lock()
	token := s.token
	s.tokenMu.Unlock()

	if token == nil {
		return mcp.NewToolResultText("no replay running"), nil
	}
	token.Cancel()
	return mcp.NewToolResultText("stop requested"), nil
}

func (s *mcpServer) setToken(token *safety.Token) {
	s.tokenMu.Lock()
	s.token = token
	s.tokenMu.Unlock()
}
