package skills

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/skillcat/pkg/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// cleanRelative validates an attachment path without touching the
// filesystem. It runs before the skill lookup so that a traversal attempt
// is rejected the same way for every identifier.
func cleanRelative(id, relPath string) (string, error) {
	slashed := filepath.ToSlash(relPath)
	if filepath.IsAbs(relPath) || strings.HasPrefix(slashed, "/") || filepath.VolumeName(relPath) != "" {
		return "", &PathTraversalError{ID: id, RelativePath: relPath}
	}

	clean := path.Clean(slashed)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", &PathTraversalError{ID: id, RelativePath: relPath}
	}
	return clean, nil
}

// within reports whether target is root or a descendant of it. Both
// paths must be absolute and clean.
func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func fetchAttachment(ctx context.Context, idx *Index, id, relPath string, limit int64) ([]byte, error) {
	return telemetry.WithSpanValue(ctx, "skills.fetch", func(context.Context) ([]byte, error) {
		return resolveAndRead(idx, id, relPath, limit)
	}, attribute.String("skill.id", id), attribute.String("attachment.path", relPath))
}

func resolveAndRead(idx *Index, id, relPath string, limit int64) ([]byte, error) {
	clean, err := cleanRelative(id, relPath)
	if err != nil {
		return nil, err
	}

	record, err := idx.Get(id)
	if err != nil {
		return nil, err
	}

	notFound := &AttachmentNotFoundError{ID: id, RelativePath: relPath}
	if clean == "." {
		return nil, notFound
	}

	realRoot, err := filepath.EvalSymlinks(record.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve root of skill '%s'", id)
	}

	// Symlinks inside the skill may point anywhere, so containment is
	// checked again on the fully resolved path.
	target, err := filepath.EvalSymlinks(filepath.Join(realRoot, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound
		}
		return nil, errors.Wrapf(err, "failed to resolve attachment '%s'", relPath)
	}
	if !within(realRoot, target) {
		return nil, &PathTraversalError{ID: id, RelativePath: relPath}
	}

	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound
		}
		return nil, errors.Wrapf(err, "failed to open attachment '%s'", relPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat attachment '%s'", relPath)
	}
	if !info.Mode().IsRegular() {
		return nil, notFound
	}
	if limit > 0 && info.Size() > limit {
		return nil, &AttachmentTooLargeError{ID: id, RelativePath: relPath, Size: info.Size(), Limit: limit}
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read attachment '%s'", relPath)
	}
	return content, nil
}
