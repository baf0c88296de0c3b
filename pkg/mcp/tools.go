package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
)

// ListSkillsInput is the input of the list_skills tool.
type ListSkillsInput struct {
	Category string `json:"category,omitempty" jsonschema:"description=Optional category filter such as 'curated'\\, 'experimental' or 'curated/utilities'. Glob patterns like 'curated/*' are accepted."`
}

// SearchSkillsInput is the input of the search_skills tool.
type SearchSkillsInput struct {
	Keyword string `json:"keyword" jsonschema:"description=Case-insensitive keyword matched against skill titles and descriptions"`
}

// GetSkillInput is the input of the get_skill tool.
type GetSkillInput struct {
	ID string `json:"id" jsonschema:"description=The skill identifier as returned by list_skills"`
}

// FetchAttachmentInput is the input of the fetch_attachment tool.
type FetchAttachmentInput struct {
	ID   string `json:"id" jsonschema:"description=The skill identifier"`
	Path string `json:"path" jsonschema:"description=Path of the file relative to the skill directory\\, e.g. 'scripts/init_skill.py'"`
}

type toolDef struct {
	name        string
	description string
	schema      func() (json.RawMessage, error)
	handler     server.ToolHandlerFunc
}

func (s *Server) catalogTools() ([]server.ServerTool, error) {
	defs := []toolDef{
		{
			name:        "list_skills",
			description: "List the metadata of every skill in the catalog, optionally restricted to a category. Returns id, title, description and category only.",
			schema:      generateSchema[ListSkillsInput],
			handler:     s.handleListSkills,
		},
		{
			name:        "search_skills",
			description: "Find skills whose title or description contains the keyword, ignoring case.",
			schema:      generateSchema[SearchSkillsInput],
			handler:     s.handleSearchSkills,
		},
		{
			name:        "get_skill",
			description: "Load the full instructions of a skill together with the list of its attachments.",
			schema:      generateSchema[GetSkillInput],
			handler:     s.handleGetSkill,
		},
		{
			name:        "fetch_attachment",
			description: "Read a file that belongs to a skill, such as a script, a reference document or a template.",
			schema:      generateSchema[FetchAttachmentInput],
			handler:     s.handleFetchAttachment,
		},
	}

	tools := make([]server.ServerTool, 0, len(defs))
	for _, def := range defs {
		schema, err := def.schema()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to generate schema for %s", def.name)
		}
		tools = append(tools, server.ServerTool{
			Tool:    mcp.NewToolWithRawSchema(def.name, def.description, schema),
			Handler: def.handler,
		})
	}
	return tools, nil
}

func (s *Server) handleListSkills(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ListSkillsInput
	if err := bindArguments(req, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.catalog.List(input.Category))
}

func (s *Server) handleSearchSkills(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input SearchSkillsInput
	if err := bindArguments(req, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.catalog.Search(input.Keyword))
}

func (s *Server) handleGetSkill(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input GetSkillInput
	if err := bindArguments(req, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	record, err := s.catalog.Get(input.ID)
	if err != nil {
		return errorResult(ctx, err), nil
	}
	return jsonResult(record)
}

func (s *Server) handleFetchAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input FetchAttachmentInput
	if err := bindArguments(req, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	content, err := s.catalog.Fetch(ctx, input.ID, input.Path)
	if err != nil {
		return errorResult(ctx, err), nil
	}

	if utf8.Valid(content) {
		return mcp.NewToolResultText(string(content)), nil
	}

	mimeType := mime.TypeByExtension(path.Ext(input.Path))
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewEmbeddedResource(mcp.BlobResourceContents{
				URI:      attachmentURI(input.ID, input.Path),
				MIMEType: mimeType,
				Blob:     base64.StdEncoding.EncodeToString(content),
			}),
		},
	}, nil
}

// attachmentURI names a skill file as skill://<id>/<path>.
func attachmentURI(id, relPath string) string {
	return "skill://" + id + "/" + strings.TrimPrefix(relPath, "/")
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tool result")
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports a catalog error to the client as a failed tool call,
// prefixed with the error kind so agents can branch on it.
func errorResult(ctx context.Context, err error) *mcp.CallToolResult {
	kind := skills.Kind(err)
	logger.G(ctx).WithError(err).WithField("kind", kind).Debug("tool call failed")
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err))
}
