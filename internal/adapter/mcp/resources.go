package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"promptbox://agents",
			"Agent Catalog",
			mcplib.WithResourceDescription("Agents available for forking"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleAgentsResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"promptbox://forks",
			"Forks",
			mcplib.WithResourceDescription("All tracked forks with status and output"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleForksResource,
	)
}

func (s *Server) handleAgentsResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return jsonResource(req.Params.URI, []byte(`{"error":"agent catalog not configured"}`)), nil
	}
	data, err := json.Marshal(s.deps.Agents.Agents())
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, data), nil
}

func (s *Server) handleForksResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Forks == nil {
		return jsonResource(req.Params.URI, []byte(`{"error":"fork manager not configured"}`)), nil
	}
	data, err := json.Marshal(s.deps.Forks.ListForks())
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, data), nil
}

func jsonResource(uri string, data []byte) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}
}
