package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jingkaihe/skillcat/pkg/presenter"
	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/jingkaihe/skillcat/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var testSummaries = []skills.Summary{
	{
		ID:          "skill-creator",
		Title:       "skill-creator",
		Description: "Create new skills",
		Category:    skills.Category{Tier: skills.TierCurated, Group: "utilities"},
	},
	{
		ID:          "nano-banana-pro",
		Title:       "nano-banana-pro",
		Description: strings.Repeat("Generate images ", 10),
		Category:    skills.Category{Tier: skills.TierExperimental},
	},
}

func testRecord() *skills.Record {
	return &skills.Record{
		ID:           "skill-creator",
		Title:        "Skill Creator",
		Description:  "Create new skills",
		Category:     skills.Category{Tier: skills.TierCurated, Group: "utilities"},
		License:      "MIT",
		AllowedTools: []string{"Read", "Write"},
		Body:         "# Skill Creator\n\nFollow these steps.\n",
		Attachments:  []string{"scripts/init_skill.py"},
	}
}

func TestValidateOutput(t *testing.T) {
	assert.NoError(t, validateOutput("json", outputTable, outputJSON))

	err := validateOutput("xml", outputTable, outputJSON, outputYAML)
	require.Error(t, err)
	assert.Equal(t, `invalid output format "xml", must be one of: table, json, yaml`, err.Error())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate(strings.Repeat("é", 20), 10))
}

func TestWriteSummaries(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSummaries(&buf, testSummaries, outputTable))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "ID"))
		assert.Contains(t, lines[2], "skill-creator")
		assert.Contains(t, lines[2], "curated/utilities")
		assert.Contains(t, lines[3], "experimental")
		assert.True(t, strings.HasSuffix(lines[3], "..."))
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSummaries(&buf, testSummaries, outputJSON))

		var decoded []skills.Summary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, testSummaries, decoded)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSummaries(&buf, testSummaries, outputYAML))

		var decoded []skills.Summary
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, testSummaries, decoded)
		assert.Contains(t, buf.String(), "tier: curated")
	})

	t.Run("empty json is an array", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSummaries(&buf, []skills.Summary{}, outputJSON))
		assert.Equal(t, "[]\n", buf.String())
	})
}

func TestWriteRecord(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeRecord(&buf, testRecord(), outputText, false))

		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "Skill Creator (skill-creator)\n"))
		assert.Contains(t, out, "Category: curated/utilities\n")
		assert.Contains(t, out, "License: MIT\n")
		assert.Contains(t, out, "Allowed tools: Read, Write\n")
		assert.Contains(t, out, "  - scripts/init_skill.py\n")
		assert.True(t, strings.HasSuffix(out, "\n# Skill Creator\n\nFollow these steps.\n"))
	})

	t.Run("rendered", func(t *testing.T) {
		var plain, rendered bytes.Buffer
		require.NoError(t, writeRecord(&plain, testRecord(), outputText, false))
		require.NoError(t, writeRecord(&rendered, testRecord(), outputText, true))
		assert.Contains(t, rendered.String(), "Follow these steps.")
		assert.NotEqual(t, plain.String(), rendered.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeRecord(&buf, testRecord(), outputJSON, true))

		var decoded skills.Record
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, *testRecord(), decoded)
	})
}

func TestRenderMarkdown(t *testing.T) {
	out, err := renderMarkdown("# Title\n\nSome *emphasis*.\n", 40)
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "emphasis")
}

func TestWriteReport(t *testing.T) {
	report := &skills.Report{
		Root:       "/skills",
		Skills:     2,
		StartedAt:  time.Unix(0, 0),
		FinishedAt: time.Unix(0, int64(15*time.Millisecond)),
	}

	t.Run("ok", func(t *testing.T) {
		var out bytes.Buffer
		p := presenter.NewWithOptions(&out, &out, presenter.ColorNever)
		writeReport(context.Background(), p, report)
		assert.Equal(t, "✓ Indexed 2 skills from /skills in 15ms\n", out.String())
	})

	t.Run("with failures", func(t *testing.T) {
		failed := *report
		failed.Failures = []skills.Failure{
			{Path: "/skills/experimental/bad", Kind: "malformed_skill_document", Reason: "missing front-matter"},
		}

		var out bytes.Buffer
		p := presenter.NewWithOptions(&out, &out, presenter.ColorNever)
		writeReport(context.Background(), p, &failed)
		assert.Contains(t, out.String(), "⚠ 1 skills were skipped\n")
		assert.Contains(t, out.String(), "  /skills/experimental/bad [malformed_skill_document]: missing front-matter\n")
	})
}

func TestWriteBuilds(t *testing.T) {
	var buf bytes.Buffer
	writeBuilds(&buf, []snapshot.BuildInfo{
		{ID: "b2", Root: "/skills", Skills: 3, Failures: 1, SavedAt: time.Now()},
		{ID: "b1", Root: "/skills", Skills: 2, SavedAt: time.Now().Add(-time.Hour)},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "BUILD"))
	assert.True(t, strings.HasPrefix(lines[2], "b2"))
	assert.True(t, strings.HasPrefix(lines[3], "b1"))
}
