package skills

import (
	"context"
	"sync"
	"sync/atomic"
)

// Status is the lifecycle state of a Catalog.
type Status string

const (
	StatusEmpty      Status = "empty"
	StatusReady      Status = "ready"
	StatusRebuilding Status = "rebuilding"
)

// generation pairs an index with the report of the build that made it,
// so readers always see both from the same build.
type generation struct {
	index  *Index
	report *Report
}

// Catalog answers queries against the most recent successful build.
// Reads are lock free; Rebuild swaps in a new index atomically so a
// reader sees either the old or the new index, never a partial one.
type Catalog struct {
	builder *Builder
	opts    *options

	current    atomic.Pointer[generation]
	rebuilding atomic.Bool
	rebuildMu  sync.Mutex
}

// NewCatalog creates an empty catalog over the tree at root. Call
// Rebuild (or Load) before querying.
func NewCatalog(root string, opts ...Option) (*Catalog, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	b, err := NewBuilder(root, opts...)
	if err != nil {
		return nil, err
	}
	return &Catalog{builder: b, opts: o}, nil
}

// Open creates a catalog and performs the first build.
func Open(ctx context.Context, root string, opts ...Option) (*Catalog, *Report, error) {
	c, err := NewCatalog(root, opts...)
	if err != nil {
		return nil, nil, err
	}
	report, err := c.Rebuild(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c, report, nil
}

// Root returns the absolute path of the skills tree.
func (c *Catalog) Root() string {
	return c.builder.Root()
}

// Rebuild rescans the tree and swaps in the result. Concurrent calls are
// serialised. If the build fails the previous index stays in place.
func (c *Catalog) Rebuild(ctx context.Context) (*Report, error) {
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()

	c.rebuilding.Store(true)
	defer c.rebuilding.Store(false)

	idx, report, err := c.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	c.current.Store(&generation{index: idx, report: report})
	return report, nil
}

// Load installs a prebuilt index, e.g. one restored from a snapshot.
func (c *Catalog) Load(idx *Index, report *Report) {
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()
	c.current.Store(&generation{index: idx, report: report})
}

func (c *Catalog) generation() *generation {
	if g := c.current.Load(); g != nil {
		return g
	}
	return &generation{index: emptyIndex()}
}

// Index returns the current index snapshot. It is never nil.
func (c *Catalog) Index() *Index {
	return c.generation().index
}

// Report returns the report of the build behind the current index, or
// nil before the first build.
func (c *Catalog) Report() *Report {
	return c.generation().report
}

// Status reports whether the catalog has been built and whether a
// rebuild is in flight.
func (c *Catalog) Status() Status {
	switch {
	case c.rebuilding.Load():
		return StatusRebuilding
	case c.current.Load() == nil:
		return StatusEmpty
	default:
		return StatusReady
	}
}

// Len returns the number of skills in the current index.
func (c *Catalog) Len() int {
	return c.Index().Len()
}

// List returns skill summaries, optionally filtered by category.
func (c *Catalog) List(category string) []Summary {
	return c.Index().List(category)
}

// Get returns the full record for id, including its body.
func (c *Catalog) Get(id string) (*Record, error) {
	return c.Index().Get(id)
}

// Search returns summaries whose title or description contains keyword.
func (c *Catalog) Search(keyword string) []Summary {
	return c.Index().Search(keyword)
}

// Fetch returns the content of an attachment belonging to skill id.
func (c *Catalog) Fetch(ctx context.Context, id, relPath string) ([]byte, error) {
	return fetchAttachment(ctx, c.Index(), id, relPath, c.opts.maxAttachmentSize)
}
