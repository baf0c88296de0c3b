package skills

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// Index is an immutable, ordered set of skill records keyed by ID.
// It is safe for concurrent readers.
type Index struct {
	records []*Record
	byID    map[string]*Record
}

// NewIndex builds an index from records in the given order. It fails on
// the first duplicate ID; the builder reports duplicates itself and never
// hands them to NewIndex.
func NewIndex(records ...*Record) (*Index, error) {
	idx := emptyIndex()
	for _, r := range records {
		if existing, ok := idx.byID[r.ID]; ok {
			return nil, &DuplicateSkillIdentifierError{ID: r.ID, Paths: []string{existing.Root, r.Root}}
		}
		idx.add(r)
	}
	return idx, nil
}

func emptyIndex() *Index {
	return &Index{byID: make(map[string]*Record)}
}

func (i *Index) add(r *Record) {
	i.records = append(i.records, r)
	i.byID[r.ID] = r
}

// Len returns the number of records.
func (i *Index) Len() int {
	return len(i.records)
}

// Records returns the records in build order. The slice is a copy; the
// records themselves must not be modified.
func (i *Index) Records() []*Record {
	out := make([]*Record, len(i.records))
	copy(out, i.records)
	return out
}

// Get returns the record with the given ID.
func (i *Index) Get(id string) (*Record, error) {
	r, ok := i.byID[id]
	if !ok {
		return nil, errors.WithStack(&NotFoundError{ID: id})
	}
	return r, nil
}

// List returns summaries in build order, optionally restricted to a
// category. The filter may be a tier ("curated"), a tier and group
// ("curated/utilities") or a doublestar pattern ("curated/*").
func (i *Index) List(category string) []Summary {
	out := make([]Summary, 0, len(i.records))
	for _, r := range i.records {
		if matchCategory(category, r.Category) {
			out = append(out, r.Summary())
		}
	}
	return out
}

// Search returns summaries whose title or description contains keyword,
// ignoring case. An empty keyword matches everything.
func (i *Index) Search(keyword string) []Summary {
	lower := strings.ToLower(keyword)
	out := make([]Summary, 0)
	for _, r := range i.records {
		if r.matches(lower) {
			out = append(out, r.Summary())
		}
	}
	return out
}

func matchCategory(filter string, c Category) bool {
	filter = strings.Trim(filter, "/")
	if filter == "" {
		return true
	}
	if filter == string(c.Tier) || filter == c.String() {
		return true
	}
	// Invalid patterns match nothing.
	ok, err := doublestar.Match(filter, c.String())
	return err == nil && ok
}
