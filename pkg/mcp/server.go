// Package mcp exposes the skill catalog to agents as Model Context
// Protocol tools served over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"io"

	"github.com/invopop/jsonschema"
	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
)

const serverName = "skillcat"

// Catalog is the read side of *skills.Catalog used by the tools.
type Catalog interface {
	List(category string) []skills.Summary
	Search(keyword string) []skills.Summary
	Get(id string) (*skills.Record, error)
	Fetch(ctx context.Context, id, relPath string) ([]byte, error)
}

// Server wraps an MCP server with the catalog tools registered.
type Server struct {
	catalog Catalog
	mcp     *server.MCPServer
	tools   []server.ServerTool
}

// NewServer registers the catalog tools on a new MCP server.
func NewServer(catalog Catalog, version string) (*Server, error) {
	s := &Server{
		catalog: catalog,
		mcp: server.NewMCPServer(
			serverName,
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}

	tools, err := s.catalogTools()
	if err != nil {
		return nil, err
	}
	s.tools = tools
	s.mcp.AddTools(tools...)
	return s, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Tools returns the registered tool definitions.
func (s *Server) Tools() []mcp.Tool {
	result := make([]mcp.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		result = append(result, t.Tool)
	}
	return result
}

// Serve speaks MCP over in and out until ctx is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	logger.G(ctx).WithField("tools", len(s.tools)).Info("starting MCP server on stdio")

	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "MCP server failed")
	}
	return nil
}

// generateSchema reflects the input struct of a tool into a JSON schema.
func generateSchema[T any]() (json.RawMessage, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	// Clients reject the draft $schema keyword on tool inputs.
	schema.Version = ""

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tool schema")
	}
	return raw, nil
}

// bindArguments decodes the tool call arguments into input.
func bindArguments(req mcp.CallToolRequest, input any) error {
	if req.Params.Arguments == nil {
		return nil
	}
	raw, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return errors.Wrap(err, "failed to marshal tool arguments")
	}
	if err := json.Unmarshal(raw, input); err != nil {
		return errors.Wrap(err, "invalid tool arguments")
	}
	return nil
}
