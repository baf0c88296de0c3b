package skills

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{err: nil, kind: ""},
		{err: &PathTraversalError{ID: "a", RelativePath: "../x"}, kind: "path_traversal"},
		{err: &AttachmentNotFoundError{ID: "a", RelativePath: "x"}, kind: "attachment_not_found"},
		{err: &AttachmentTooLargeError{ID: "a", RelativePath: "x", Size: 2, Limit: 1}, kind: "attachment_too_large"},
		{err: errors.WithStack(&NotFoundError{ID: "a"}), kind: "not_found"},
		{err: &MalformedSkillDocumentError{Path: "p", Reason: "r"}, kind: "malformed_skill_document"},
		{err: &DuplicateSkillIdentifierError{ID: "a"}, kind: "duplicate_skill_identifier"},
		{err: errors.New("boom"), kind: "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, Kind(tt.err))
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := errors.Wrap(&AttachmentNotFoundError{ID: "skill", RelativePath: "scripts/x.py"}, "fetch failed")

	assert.True(t, IsAttachmentNotFound(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsPathTraversal(err))
	assert.Contains(t, err.Error(), "attachment 'scripts/x.py' not found in skill 'skill'")
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		"duplicate skill identifier 'dup' (/a/dup, /b/dup)",
		(&DuplicateSkillIdentifierError{ID: "dup", Paths: []string{"/a/dup", "/b/dup"}}).Error())
	assert.Equal(t,
		"malformed skill document /a/SKILL.md: missing front-matter",
		(&MalformedSkillDocumentError{Path: "/a/SKILL.md", Reason: "missing front-matter"}).Error())
	assert.Equal(t,
		"path '../etc' escapes the root of skill 'x'",
		(&PathTraversalError{ID: "x", RelativePath: "../etc"}).Error())
}
