package skills

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/jingkaihe/skillcat/pkg/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// Builder scans a skills tree laid out as
//
//	<root>/curated/<group>/<id>/SKILL.md
//	<root>/experimental/<id>/SKILL.md
//
// and produces an Index plus a Report of every skill it had to skip.
type Builder struct {
	root string
	opts *options
}

// candidate is a directory sitting in a skill position of the layout
type candidate struct {
	dir      string
	category Category
}

// NewBuilder creates a builder for the tree at root.
func NewBuilder(root string, opts ...Option) (*Builder, error) {
	if root == "" {
		return nil, errors.New("skills root cannot be empty")
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve skills root")
	}
	return &Builder{root: abs, opts: o}, nil
}

// Root returns the absolute path of the scanned tree.
func (b *Builder) Root() string {
	return b.root
}

// Build scans the tree. Individual skills that cannot be loaded are
// recorded in the report and never fail the build; only an unreadable
// root or a cancelled context does.
func (b *Builder) Build(ctx context.Context) (*Index, *Report, error) {
	var (
		idx    *Index
		report *Report
	)
	err := telemetry.WithSpan(ctx, "skills.build", func(ctx context.Context) error {
		var err error
		idx, report, err = b.build(ctx)
		if err == nil {
			telemetry.SetAttributes(ctx,
				attribute.String("build.id", report.BuildID),
				attribute.Int("skills.count", report.Skills),
				attribute.Int("skills.failures", len(report.Failures)),
			)
		}
		return err
	}, attribute.String("skills.root", b.root))
	if err != nil {
		return nil, nil, err
	}
	return idx, report, nil
}

func (b *Builder) build(ctx context.Context) (*Index, *Report, error) {
	info, err := os.Stat(b.root)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to stat skills root")
	}
	if !info.IsDir() {
		return nil, nil, errors.Errorf("skills root %s is not a directory", b.root)
	}

	report := &Report{
		BuildID:   uuid.New().String(),
		Root:      b.root,
		StartedAt: b.opts.now(),
		Failures:  []Failure{},
	}
	idx := emptyIndex()
	log := logger.G(ctx).WithField("build_id", report.BuildID)

	for _, c := range b.candidates() {
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.Wrap(err, "catalog build cancelled")
		}

		record, err := b.load(c)
		if err != nil {
			log.WithField("path", c.dir).WithError(err).Warn("skipping skill")
			report.record(c.dir, err)
			continue
		}

		if existing, ok := idx.byID[record.ID]; ok {
			dup := &DuplicateSkillIdentifierError{ID: record.ID, Paths: []string{existing.Root, record.Root}}
			log.WithField("path", c.dir).WithError(dup).Warn("skipping duplicate skill")
			report.record(c.dir, dup)
			continue
		}

		idx.add(record)
	}

	report.Skills = idx.Len()
	report.FinishedAt = b.opts.now()

	log.WithField("skills", report.Skills).
		WithField("failures", len(report.Failures)).
		Debug("catalog build finished")

	return idx, report, nil
}

// candidates lists skill directories in traversal order: curated groups
// first, then experimental, each level sorted by name.
func (b *Builder) candidates() []candidate {
	var out []candidate

	curated := filepath.Join(b.root, curatedDir)
	for _, group := range subdirs(curated) {
		for _, dir := range subdirs(filepath.Join(curated, group)) {
			out = append(out, candidate{
				dir:      filepath.Join(curated, group, dir),
				category: Category{Tier: TierCurated, Group: group},
			})
		}
	}

	experimental := filepath.Join(b.root, experimentalDir)
	for _, dir := range subdirs(experimental) {
		out = append(out, candidate{
			dir:      filepath.Join(experimental, dir),
			category: Category{Tier: TierExperimental},
		})
	}

	return out
}

// subdirs returns the names of visible directories in dir, following
// symlinks. Broken symlinks, files and dot-directories are skipped.
func subdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil || !info.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

func (b *Builder) load(c candidate) (*Record, error) {
	skillPath := filepath.Join(c.dir, skillFileName)
	content, err := os.ReadFile(skillPath)
	if err != nil {
		reason := "failed to read " + skillFileName + ": " + err.Error()
		if errors.Is(err, fs.ErrNotExist) {
			reason = "missing " + skillFileName
		}
		return nil, &MalformedSkillDocumentError{Path: skillPath, Reason: reason}
	}

	doc, err := ParseDocument(skillPath, content)
	if err != nil {
		return nil, err
	}

	return &Record{
		ID:           filepath.Base(c.dir),
		Category:     c.category,
		Title:        doc.Title,
		Description:  doc.Description,
		License:      doc.License,
		AllowedTools: doc.AllowedTools,
		Metadata:     doc.Metadata,
		Root:         c.dir,
		Body:         doc.Body,
		Outline:      doc.Outline,
		Attachments:  b.attachments(c.dir),
	}, nil
}

// attachments lists files under the attachment subdirectories of a
// skill as slash separated paths relative to the skill root. Entries
// whose resolved location leaves the skill root are not listed, nor are
// symlinks to directories.
func (b *Builder) attachments(root string) []string {
	out := []string{}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return out
	}

	for _, sub := range attachmentDirs {
		base, err := filepath.EvalSymlinks(filepath.Join(root, sub))
		if err != nil || !within(realRoot, base) {
			continue
		}
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			continue
		}

		_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if d.Type()&fs.ModeSymlink != 0 && !resolvesToFileWithin(realRoot, path) {
				return nil
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return nil
			}
			rel = sub + "/" + filepath.ToSlash(rel)
			if b.excluded(rel) {
				return nil
			}
			out = append(out, rel)
			return nil
		})
	}
	return out
}

func resolvesToFileWithin(realRoot, path string) bool {
	target, err := filepath.EvalSymlinks(path)
	if err != nil || !within(realRoot, target) {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}

func (b *Builder) excluded(rel string) bool {
	for _, pattern := range b.opts.excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
