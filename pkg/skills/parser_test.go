package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	content := `---
name: systematic-debugging
description: Find root causes before proposing fixes
license: MIT
allowed-tools: Read, Grep, Bash
metadata:
  version: 1.2
  author: platform
---

# Systematic Debugging

Intro paragraph.

## Phase 1: ` + "`reproduce`" + `

Steps.
`
	doc, err := ParseDocument("SKILL.md", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, "systematic-debugging", doc.Title)
	assert.Equal(t, "Find root causes before proposing fixes", doc.Description)
	assert.Equal(t, "MIT", doc.License)
	assert.Equal(t, []string{"Read", "Grep", "Bash"}, doc.AllowedTools)
	assert.Equal(t, map[string]string{"version": "1.2", "author": "platform"}, doc.Metadata)
	assert.Equal(t, "# Systematic Debugging\n\nIntro paragraph.\n\n## Phase 1: `reproduce`\n\nSteps.\n", doc.Body)
	assert.Equal(t, []Heading{
		{Level: 1, Text: "Systematic Debugging"},
		{Level: 2, Text: "Phase 1: reproduce"},
	}, doc.Outline)
}

func TestParseDocumentAllowedToolsList(t *testing.T) {
	content := "---\nname: a\ndescription: b\nallowed-tools:\n  - Read\n  - Write\n---\nbody"
	doc, err := ParseDocument("SKILL.md", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, []string{"Read", "Write"}, doc.AllowedTools)
	assert.Equal(t, "body", doc.Body)
}

func TestParseDocumentCRLF(t *testing.T) {
	content := "---\r\nname: windows-skill\r\ndescription: Written on Windows\r\n---\r\n\r\nBody line.\r\n"
	doc, err := ParseDocument("SKILL.md", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, "windows-skill", doc.Title)
	assert.Equal(t, "Body line.\n", doc.Body)
}

func TestParseDocumentMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{
			name:    "no front-matter",
			content: "# Just content\nNo front-matter here.\n",
			reason:  "missing front-matter",
		},
		{
			name:    "empty file",
			content: "",
			reason:  "missing front-matter",
		},
		{
			name:    "unterminated front-matter",
			content: "---\nname: test\ndescription: desc\n# no closing marker\n",
			reason:  "unterminated front-matter",
		},
		{
			name:    "missing name",
			content: "---\ndescription: Missing name field\n---\n\nContent.\n",
			reason:  "name is required",
		},
		{
			name:    "missing description",
			content: "---\nname: no-desc\n---\n\nContent.\n",
			reason:  "description is required",
		},
		{
			name:    "blank description",
			content: "---\nname: blank\ndescription: \"   \"\n---\n",
			reason:  "description is required",
		},
		{
			name:    "empty front-matter",
			content: "---\n---\nbody\n",
			reason:  "name is required",
		},
		{
			name:    "invalid yaml",
			content: "---\nname: [unclosed\ndescription: x\n---\n",
			reason:  "invalid front-matter",
		},
		{
			name:    "name is not a string",
			content: "---\nname: [a, b]\ndescription: x\n---\n",
			reason:  "invalid front-matter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument("/skills/x/SKILL.md", []byte(tt.content))
			require.Error(t, err)
			assert.Nil(t, doc)

			var malformed *MalformedSkillDocumentError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "/skills/x/SKILL.md", malformed.Path)
			assert.Contains(t, malformed.Reason, tt.reason)
		})
	}
}

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "with front-matter",
			input:    "---\nname: test\ndescription: desc\n---\n\n# Content\n\nBody text.",
			expected: "# Content\n\nBody text.",
		},
		{
			name:     "empty body",
			input:    "---\nname: test\n---",
			expected: "",
		},
		{
			name:     "trailing spaces on markers",
			input:    "--- \nname: test\n---  \nbody",
			expected: "body",
		},
		{
			name:    "marker not on first line",
			input:   "\n---\nname: test\n---\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := splitFrontMatter(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, body)
		})
	}
}
