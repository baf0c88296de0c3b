package skills

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

const frontMatterMarker = "---"

// Document is the parsed content of a single SKILL.md file.
type Document struct {
	Title        string
	Description  string
	License      string
	AllowedTools []string
	Metadata     map[string]string
	Body         string
	Outline      []Heading
}

// frontMatter is the strict shape of the YAML block at the head of a
// SKILL.md file. Unknown keys are ignored; known keys must have the
// declared type.
type frontMatter struct {
	Name         string         `mapstructure:"name"`
	Description  string         `mapstructure:"description"`
	License      string         `mapstructure:"license"`
	AllowedTools []string       `mapstructure:"allowed-tools"`
	Metadata     map[string]any `mapstructure:"metadata"`
}

var markdown = goldmark.New(goldmark.WithExtensions(meta.Meta))

// ParseDocument extracts front-matter and body from the content of the
// skill document at path. Path is only used to label errors.
func ParseDocument(path string, content []byte) (*Document, error) {
	source := normalizeNewlines(content)

	body, err := splitFrontMatter(string(source))
	if err != nil {
		return nil, &MalformedSkillDocumentError{Path: path, Reason: err.Error()}
	}

	pctx := parser.NewContext()
	root := markdown.Parser().Parse(text.NewReader(source), parser.WithContext(pctx))

	raw, err := meta.TryGet(pctx)
	if err != nil {
		return nil, &MalformedSkillDocumentError{Path: path, Reason: "invalid front-matter: " + err.Error()}
	}

	fm, err := decodeFrontMatter(raw)
	if err != nil {
		return nil, &MalformedSkillDocumentError{Path: path, Reason: "invalid front-matter: " + err.Error()}
	}

	if strings.TrimSpace(fm.Name) == "" {
		return nil, &MalformedSkillDocumentError{Path: path, Reason: "name is required in front-matter"}
	}
	if strings.TrimSpace(fm.Description) == "" {
		return nil, &MalformedSkillDocumentError{Path: path, Reason: "description is required in front-matter"}
	}

	return &Document{
		Title:        strings.TrimSpace(fm.Name),
		Description:  strings.TrimSpace(fm.Description),
		License:      strings.TrimSpace(fm.License),
		AllowedTools: fm.AllowedTools,
		Metadata:     stringifyMetadata(fm.Metadata),
		Body:         body,
		Outline:      outline(root, source),
	}, nil
}

func normalizeNewlines(content []byte) []byte {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}

// splitFrontMatter validates the front-matter delimiters and returns the
// body that follows the closing marker.
func splitFrontMatter(content string) (string, error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t") != frontMatterMarker {
		return "", errors.New("missing front-matter")
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterMarker {
			return strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n"), nil
		}
	}

	return "", errors.New("unterminated front-matter")
}

func decodeFrontMatter(raw map[string]any) (*frontMatter, error) {
	var fm frontMatter
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &fm,
		DecodeHook: allowedToolsHook,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return &fm, nil
}

// allowedToolsHook accepts allowed-tools written either as a YAML list or
// as a single comma or space separated string.
func allowedToolsHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}
	fields := strings.FieldsFunc(data.(string), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return fields, nil
}

func stringifyMetadata(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func outline(root ast.Node, source []byte) []Heading {
	var headings []Heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		headings = append(headings, Heading{Level: h.Level, Text: inlineText(h, source)})
		return ast.WalkSkipChildren, nil
	})
	return headings
}

func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
