// Package mcp exposes the fork manager to AI agents over the Model Context
// Protocol (streamable HTTP transport).
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/promptbox/internal/domain/agent"
	"github.com/Strob0t/promptbox/internal/domain/fork"
)

// ForkManager is the subset of the fork service the tools call.
type ForkManager interface {
	CreateFork(ctx context.Context, req fork.CreateRequest) (fork.Fork, error)
	ListForks() []fork.Fork
	GetFork(id string) (fork.Fork, bool)
	TerminateFork(ctx context.Context, id string) bool
	UpdateProgress(ctx context.Context, id string, progress int) (fork.Fork, error)
}

// AgentLister exposes the live agent catalog.
type AgentLister interface {
	Agents() map[string]agent.Definition
}

// ServerConfig holds the MCP server identity and access key.
type ServerConfig struct {
	Name    string
	Version string
	// APIKey, when set, is required as a Bearer token on every request.
	APIKey string
}

// ServerDeps are the services backing the tools. Nil deps make the matching
// tools return an error result.
type ServerDeps struct {
	Forks  ForkManager
	Agents AgentLister
}

// Server wraps an MCP server with the promptbox tools and resources.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
}

// NewServer creates the MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP handler, behind API-key auth when
// configured.
func (s *Server) Handler() http.Handler {
	return AuthMiddleware(s.cfg.APIKey, mcpserver.NewStreamableHTTPServer(s.mcpServer))
}
