package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/tool"
)

// registerTools registers every registry tool on the server.
func (s *Server) registerTools() error {
	specs := s.adapter.Registry().Specs()
	tools := make([]mcpserver.ServerTool, 0, len(specs))
	for _, spec := range specs {
		st, err := s.serverTool(spec)
		if err != nil {
			return err
		}
		tools = append(tools, st)
	}
	s.mcpServer.AddTools(tools...)
	return nil
}

func (s *Server) serverTool(spec tool.Spec) (mcpserver.ServerTool, error) {
	schema, err := json.Marshal(spec.Parameters)
	if err != nil {
		return mcpserver.ServerTool{}, fmt.Errorf("marshal schema for %s: %w", spec.Name, err)
	}
	name := spec.Name
	return mcpserver.ServerTool{
		Tool: mcplib.NewToolWithRawSchema(name, spec.Description, schema),
		Handler: func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
			return s.handleCall(ctx, name, req)
		},
	}, nil
}

// handleCall runs the tool through the adapter. Adapter failures surface as
// MCP error results, never as protocol errors.
func (s *Server) handleCall(ctx context.Context, name string, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	var args json.RawMessage
	if raw := req.GetRawArguments(); raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return mcplib.NewToolResultErrorFromErr("invalid arguments", err), nil
		}
		args = data
	}

	out := s.adapter.Execute(ctx, run.ToolInvocation{
		CallID:    "mcp_" + uuid.NewString(),
		ToolName:  name,
		Arguments: args,
	})
	if !out.Success {
		return mcplib.NewToolResultError(out.Output), nil
	}
	return mcplib.NewToolResultText(out.Output), nil
}
