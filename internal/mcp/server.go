package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dmills/repovec/internal/config"
	"github.com/dmills/repovec/internal/pipeline"
)

const (
	// ServerName is the MCP server name
	ServerName = "repovec"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	pipeline *pipeline.Service
	log      *zap.Logger
}

// NewServer creates a new MCP server instance. Provider configuration is
// validated here; a server that starts can embed.
func NewServer(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	svc, err := pipeline.New(cfg, log)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		pipeline: svc,
		log:      log,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.pipeline.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexRepositoryTool(), s.handleIndexRepository)
	s.mcp.AddTool(queryTool(), s.handleQuery)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
