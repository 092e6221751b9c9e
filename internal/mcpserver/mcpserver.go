package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/knitgraph/internal/service/analysis"
)

// Server wraps the MCP server and registers the knitgraph tools.
type Server struct {
	server  *mcp.Server
	service *analysis.Service
}

// NewServer creates a new MCP server. A nil service loads the config from
// the working directory.
func NewServer(version string, svc *analysis.Service) *Server {
	if version == "" {
		version = "dev"
	}
	if svc == nil {
		svc = analysis.New()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, service: svc}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves the MCP protocol over an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_knit_graph",
		Description: describeKnitGraph(),
	}, s.handleAnalyzeKnitGraph)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_graph_metrics",
		Description: describeGraphMetrics(),
	}, s.handleAnalyzeGraphMetrics)
}
