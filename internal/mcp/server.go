// Package mcp exposes analyst sessions as MCP tools so an agent can drive a
// conversation on the operator's behalf.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/auto-analyst/internal/flow"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server bound to a session service.
type Server struct {
	service *flow.Service
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(service *flow.Service) *Server {
	s := &Server{service: service}
	s.mcp = server.NewMCPServer(
		"analyst",
		Version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(startTool, s.handleStart)
	s.mcp.AddTool(turnTool, s.handleTurn)
	s.mcp.AddTool(statusTool, s.handleStatus)
	s.mcp.AddTool(documentTool, s.handleDocument)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
