package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/promptbox/internal/domain/agent"
	"github.com/Strob0t/promptbox/internal/domain/fork"
	"github.com/Strob0t/promptbox/internal/port/launcher"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listAgentsTool(),
		s.forkTerminalTool(),
		s.listForksTool(),
		s.getForkTool(),
		s.terminateForkTool(),
		s.reportProgressTool(),
	)
}

func (s *Server) listAgentsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_agents",
		mcplib.WithDescription("List the CLI agents that can be forked into a new terminal"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListAgents}
}

func (s *Server) forkTerminalTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("fork_terminal",
		mcplib.WithDescription("Open a new terminal window running an agent on the given prompt"),
		mcplib.WithString("agent",
			mcplib.Required(),
			mcplib.Description("Agent id, e.g. claude, codex, gemini or raw"),
		),
		mcplib.WithString("prompt",
			mcplib.Required(),
			mcplib.Description("Task for the agent, or the shell command for the raw agent"),
		),
		mcplib.WithString("model_tier",
			mcplib.Description("Model tier to use"),
			mcplib.Enum(string(agent.TierFast), string(agent.TierDefault), string(agent.TierHeavy)),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleForkTerminal}
}

func (s *Server) listForksTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_forks",
		mcplib.WithDescription("List all tracked forks in creation order"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListForks}
}

func (s *Server) getForkTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_fork",
		mcplib.WithDescription("Get a fork's status, progress and output log"),
		mcplib.WithString("fork_id", mcplib.Required(), mcplib.Description("The fork id")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetFork}
}

func (s *Server) terminateForkTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("terminate_fork",
		mcplib.WithDescription("Terminate a fork and kill its terminal when the pid is known"),
		mcplib.WithString("fork_id", mcplib.Required(), mcplib.Description("The fork id")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleTerminateFork}
}

func (s *Server) reportProgressTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("report_progress",
		mcplib.WithDescription("Report progress (0-100) for the fork you are running in; 100 completes it"),
		mcplib.WithString("fork_id", mcplib.Required(), mcplib.Description("The fork id")),
		mcplib.WithNumber("progress", mcplib.Required(), mcplib.Description("Progress percentage")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleReportProgress}
}

func (s *Server) handleListAgents(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent catalog not configured"), nil
	}
	agents := s.deps.Agents.Agents()
	list := make([]agent.Definition, 0, len(agents))
	for _, id := range slices.Sorted(maps.Keys(agents)) {
		list = append(list, agents[id])
	}
	return jsonResult("agents", list)
}

func (s *Server) handleForkTerminal(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Forks == nil {
		return mcplib.NewToolResultError("fork manager not configured"), nil
	}
	args := req.GetArguments()
	agentID, _ := args["agent"].(string)
	prompt, _ := args["prompt"].(string)
	tier, _ := args["model_tier"].(string)

	f, err := s.deps.Forks.CreateFork(ctx, fork.CreateRequest{
		Agent:     agentID,
		ModelTier: agent.Tier(tier),
		Prompt:    prompt,
	})
	if err != nil {
		var le *launcher.LaunchError
		if errors.As(err, &le) {
			return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("fork %s failed to launch", f.ID), err), nil
		}
		return mcplib.NewToolResultErrorFromErr("failed to create fork", err), nil
	}
	return jsonResult("fork", f)
}

func (s *Server) handleListForks(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Forks == nil {
		return mcplib.NewToolResultError("fork manager not configured"), nil
	}
	return jsonResult("forks", s.deps.Forks.ListForks())
}

func (s *Server) handleGetFork(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Forks == nil {
		return mcplib.NewToolResultError("fork manager not configured"), nil
	}
	id, ok := req.GetArguments()["fork_id"].(string)
	if !ok || id == "" {
		return mcplib.NewToolResultError("fork_id is required"), nil
	}
	f, found := s.deps.Forks.GetFork(id)
	if !found {
		return mcplib.NewToolResultError(fmt.Sprintf("fork %s not found", id)), nil
	}
	return jsonResult("fork", f)
}

func (s *Server) handleTerminateFork(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Forks == nil {
		return mcplib.NewToolResultError("fork manager not configured"), nil
	}
	id, ok := req.GetArguments()["fork_id"].(string)
	if !ok || id == "" {
		return mcplib.NewToolResultError("fork_id is required"), nil
	}
	if !s.deps.Forks.TerminateFork(ctx, id) {
		return mcplib.NewToolResultError(fmt.Sprintf("fork %s not found", id)), nil
	}
	return mcplib.NewToolResultText(fmt.Sprintf("fork %s terminated", id)), nil
}

func (s *Server) handleReportProgress(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Forks == nil {
		return mcplib.NewToolResultError("fork manager not configured"), nil
	}
	args := req.GetArguments()
	id, ok := args["fork_id"].(string)
	if !ok || id == "" {
		return mcplib.NewToolResultError("fork_id is required"), nil
	}
	progress, ok := args["progress"].(float64)
	if !ok {
		return mcplib.NewToolResultError("progress must be a number"), nil
	}

	// Clamp before converting; out-of-range floats do not convert sanely.
	f, err := s.deps.Forks.UpdateProgress(ctx, id, int(min(max(progress, 0), 100)))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to update fork %s", id), err), nil
	}
	return jsonResult("fork", f)
}

func jsonResult(what string, v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal "+what, err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
