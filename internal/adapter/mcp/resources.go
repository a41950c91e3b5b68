package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const toolsURI = "nbassist://tools"

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			toolsURI,
			"Tool Catalog",
			mcplib.WithResourceDescription("Names, descriptions and parameter schemas of the NetBox lookup tools"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleToolsResource,
	)
}

func (s *Server) handleToolsResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	data, err := json.Marshal(s.adapter.Registry().Specs())
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
