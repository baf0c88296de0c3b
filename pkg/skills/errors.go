package skills

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// MalformedSkillDocumentError is recorded when a skill directory has no
// primary document or its front-matter cannot be parsed or validated.
type MalformedSkillDocumentError struct {
	Path   string
	Reason string
}

func (e *MalformedSkillDocumentError) Error() string {
	return fmt.Sprintf("malformed skill document %s: %s", e.Path, e.Reason)
}

// DuplicateSkillIdentifierError is recorded when two skill directories
// share an identifier. Paths lists the retained path first.
type DuplicateSkillIdentifierError struct {
	ID    string
	Paths []string
}

func (e *DuplicateSkillIdentifierError) Error() string {
	return fmt.Sprintf("duplicate skill identifier '%s' (%s)", e.ID, strings.Join(e.Paths, ", "))
}

// NotFoundError is returned when no skill carries the requested identifier.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("skill '%s' not found", e.ID)
}

// AttachmentNotFoundError is returned when an attachment path resolves
// inside the skill root but no regular file exists there.
type AttachmentNotFoundError struct {
	ID           string
	RelativePath string
}

func (e *AttachmentNotFoundError) Error() string {
	return fmt.Sprintf("attachment '%s' not found in skill '%s'", e.RelativePath, e.ID)
}

// PathTraversalError is returned when an attachment path would resolve
// outside the skill root.
type PathTraversalError struct {
	ID           string
	RelativePath string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path '%s' escapes the root of skill '%s'", e.RelativePath, e.ID)
}

// AttachmentTooLargeError is returned when an attachment exceeds the
// configured size limit.
type AttachmentTooLargeError struct {
	ID           string
	RelativePath string
	Size         int64
	Limit        int64
}

func (e *AttachmentTooLargeError) Error() string {
	return fmt.Sprintf("attachment '%s' in skill '%s' is %d bytes, limit is %d", e.RelativePath, e.ID, e.Size, e.Limit)
}

// IsMalformed reports whether err is or wraps a MalformedSkillDocumentError.
func IsMalformed(err error) bool {
	var target *MalformedSkillDocumentError
	return errors.As(err, &target)
}

// IsDuplicate reports whether err is or wraps a DuplicateSkillIdentifierError.
func IsDuplicate(err error) bool {
	var target *DuplicateSkillIdentifierError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAttachmentNotFound reports whether err is or wraps an AttachmentNotFoundError.
func IsAttachmentNotFound(err error) bool {
	var target *AttachmentNotFoundError
	return errors.As(err, &target)
}

// IsPathTraversal reports whether err is or wraps a PathTraversalError.
func IsPathTraversal(err error) bool {
	var target *PathTraversalError
	return errors.As(err, &target)
}

// IsAttachmentTooLarge reports whether err is or wraps an AttachmentTooLargeError.
func IsAttachmentTooLarge(err error) bool {
	var target *AttachmentTooLargeError
	return errors.As(err, &target)
}

// Kind returns a short stable name for the error category, used by the
// HTTP and MCP surfaces. Unknown errors map to "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsPathTraversal(err):
		return "path_traversal"
	case IsAttachmentNotFound(err):
		return "attachment_not_found"
	case IsAttachmentTooLarge(err):
		return "attachment_too_large"
	case IsNotFound(err):
		return "not_found"
	case IsMalformed(err):
		return "malformed_skill_document"
	case IsDuplicate(err):
		return "duplicate_skill_identifier"
	default:
		return "internal"
	}
}
