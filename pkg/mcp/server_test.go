package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "curated/utilities/skill-creator/SKILL.md",
		"---\nname: skill-creator\ndescription: Create new skills\n---\n\n# Skill Creator\n")
	writeFile(t, root, "curated/utilities/skill-creator/scripts/init_skill.py", "print('init')\n")
	writeFile(t, root, "curated/utilities/skill-creator/references/logo.png", "\x89PNG\r\n\x1a\n\xff\xfe")
	writeFile(t, root, "experimental/nano-banana-pro/SKILL.md",
		"---\nname: nano-banana-pro\ndescription: Generate images\n---\n\nBody\n")

	catalog, report, err := skills.Open(context.Background(), root)
	require.NoError(t, err)
	require.True(t, report.OK())

	s, err := NewServer(catalog, "test")
	require.NoError(t, err)
	return s
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestToolsAreRegistered(t *testing.T) {
	s := newTestServer(t)

	names := []string{}
	for _, tool := range s.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"list_skills", "search_skills", "get_skill", "fetch_attachment"}, names)
	assert.NotNil(t, s.MCPServer())
}

func TestToolSchemas(t *testing.T) {
	s := newTestServer(t)

	schemas := map[string]map[string]any{}
	for _, tool := range s.Tools() {
		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.RawInputSchema, &schema))
		schemas[tool.Name] = schema
	}

	fetch := schemas["fetch_attachment"]
	assert.Equal(t, "object", fetch["type"])
	assert.ElementsMatch(t, []any{"id", "path"}, fetch["required"])
	assert.Equal(t, false, fetch["additionalProperties"])
	assert.NotContains(t, fetch, "$schema")

	list := schemas["list_skills"]
	assert.NotContains(t, list, "required")
	props := list["properties"].(map[string]any)
	category := props["category"].(map[string]any)
	assert.Contains(t, category["description"], "curated/utilities")
}

func TestHandleListSkills(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t.Run("all", func(t *testing.T) {
		result, err := s.handleListSkills(ctx, callRequest(nil))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		var summaries []skills.Summary
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &summaries))
		require.Len(t, summaries, 2)
		assert.Equal(t, "skill-creator", summaries[0].ID)
		assert.Equal(t, "nano-banana-pro", summaries[1].ID)
	})

	t.Run("by category", func(t *testing.T) {
		result, err := s.handleListSkills(ctx, callRequest(map[string]any{"category": "experimental"}))
		require.NoError(t, err)

		var summaries []skills.Summary
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &summaries))
		require.Len(t, summaries, 1)
		assert.Equal(t, "nano-banana-pro", summaries[0].ID)
	})

	t.Run("summaries carry no body", func(t *testing.T) {
		result, err := s.handleListSkills(ctx, callRequest(nil))
		require.NoError(t, err)
		assert.NotContains(t, resultText(t, result), "# Skill Creator")
	})
}

func TestHandleSearchSkills(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleSearchSkills(context.Background(), callRequest(map[string]any{"keyword": "IMAGE"}))
	require.NoError(t, err)

	var summaries []skills.Summary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "nano-banana-pro", summaries[0].ID)

	result, err = s.handleSearchSkills(context.Background(), callRequest(map[string]any{"keyword": "nothing-matches"}))
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestHandleGetSkill(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		result, err := s.handleGetSkill(ctx, callRequest(map[string]any{"id": "skill-creator"}))
		require.NoError(t, err)

		var record skills.Record
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &record))
		assert.Equal(t, "# Skill Creator\n", record.Body)
		assert.Equal(t, []string{"references/logo.png", "scripts/init_skill.py"}, record.Attachments)
	})

	t.Run("not found", func(t *testing.T) {
		result, err := s.handleGetSkill(ctx, callRequest(map[string]any{"id": "missing"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.True(t, strings.HasPrefix(resultText(t, result), "not_found: "))
	})

	t.Run("bad arguments", func(t *testing.T) {
		result, err := s.handleGetSkill(ctx, callRequest(map[string]any{"id": 42}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "invalid tool arguments")
	})
}

func TestHandleFetchAttachment(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		result, err := s.handleFetchAttachment(ctx, callRequest(map[string]any{
			"id":   "skill-creator",
			"path": "scripts/init_skill.py",
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, "print('init')\n", resultText(t, result))
	})

	t.Run("binary", func(t *testing.T) {
		result, err := s.handleFetchAttachment(ctx, callRequest(map[string]any{
			"id":   "skill-creator",
			"path": "references/logo.png",
		}))
		require.NoError(t, err)
		require.Len(t, result.Content, 1)

		embedded, ok := result.Content[0].(mcp.EmbeddedResource)
		require.True(t, ok, "expected embedded resource, got %T", result.Content[0])
		blob, ok := embedded.Resource.(mcp.BlobResourceContents)
		require.True(t, ok)
		assert.Equal(t, "skill://skill-creator/references/logo.png", blob.URI)
		assert.Equal(t, "image/png", blob.MIMEType)

		decoded, err := base64.StdEncoding.DecodeString(blob.Blob)
		require.NoError(t, err)
		assert.Equal(t, "\x89PNG\r\n\x1a\n\xff\xfe", string(decoded))
	})

	tests := []struct {
		name string
		id   string
		path string
		kind string
	}{
		{name: "traversal", id: "skill-creator", path: "../../../etc/passwd", kind: "path_traversal"},
		{name: "traversal on unknown skill", id: "does-not-exist", path: "../../../etc/passwd", kind: "path_traversal"},
		{name: "missing attachment", id: "skill-creator", path: "scripts/nonexistent.py", kind: "attachment_not_found"},
		{name: "unknown skill", id: "does-not-exist", path: "scripts/init_skill.py", kind: "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleFetchAttachment(ctx, callRequest(map[string]any{"id": tt.id, "path": tt.path}))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.True(t, strings.HasPrefix(resultText(t, result), tt.kind+": "), resultText(t, result))
		})
	}
}

func TestAttachmentURI(t *testing.T) {
	assert.Equal(t, "skill://a/scripts/x.py", attachmentURI("a", "scripts/x.py"))
	assert.Equal(t, "skill://a/x.md", attachmentURI("a", "/x.md"))
}
