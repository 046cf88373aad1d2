// Package mcpserver exposes the schematic editor as MCP tools.
package mcpserver

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/pkg/kicad/editor"
)

// Name is the implementation name announced to clients.
const Name = "schedit"

// Server wires editor operations to an MCP server.
type Server struct {
	editor    *editor.Editor
	mcpServer *mcp.Server
	logger    *zap.Logger
}

// New creates a server with every tool registered.
func New(ed *editor.Editor, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		editor:    ed,
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil),
		logger:    logger,
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}

// reply encodes an operation outcome. Failures become a failed Result
// with IsError set rather than a protocol error.
func (s *Server) reply(tool string, res *editor.Result, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", tool), zap.Error(err))
		res = editor.Failure(err)
	}
	return s.encode(res, !res.Success)
}

func (s *Server) encode(v any, isError bool) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(data), isError), nil, nil
}
