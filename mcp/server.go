package mcp

import (
	"github.com/ka2n/cmsrelay/api"
	"github.com/ka2n/cmsrelay/config"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server represents the MCP server for cmsrelay
type Server struct {
	server *server.MCPServer
}

// NewServer creates a new MCP server instance. Tool calls start from cfg.
func NewServer(cfg config.Config) *Server {
	s := server.NewMCPServer("cmsrelay", api.VersionString())

	registerTools(s, cfg)

	return &Server{
		server: s,
	}
}

// Run starts the MCP server
func (s *Server) Run() error {
	return server.ServeStdio(s.server)
}

// registerTools registers all available tools with the MCP server
func registerTools(s *server.MCPServer, cfg config.Config) {
	tools := InitTools(cfg)
	s.AddTools(tools...)
}

func newServerTool(tool mcp.Tool, handler server.ToolHandlerFunc) server.ServerTool {
	return server.ServerTool{
		Tool:    tool,
		Handler: handler,
	}
}
