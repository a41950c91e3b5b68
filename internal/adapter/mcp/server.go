// Package mcp exposes the NetBox lookup tools over the Model Context Protocol,
// so the same tools the hosted assistant calls can be used from MCP clients.
package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/NetBoxAssistant/internal/tool"
)

// ServerConfig holds the identity the server announces to clients.
type ServerConfig struct {
	Name    string
	Version string
}

// Server serves the tool registry over MCP.
type Server struct {
	cfg       ServerConfig
	adapter   *tool.Adapter
	mcpServer *mcpserver.MCPServer
}

// NewServer creates an MCP server whose tools are executed through adapter.
func NewServer(cfg ServerConfig, adapter *tool.Adapter) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		adapter: adapter,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// ServeStdio serves JSON-RPC over the given reader and writer until ctx is done
// or the input is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	slog.Info("mcp server listening on stdio", "name", s.cfg.Name, "tools", len(s.adapter.Registry().Names()))
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}
