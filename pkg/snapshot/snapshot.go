// Package snapshot persists catalog builds. A snapshot can be written to
// a JSON file, saved to the SQLite store, restored into a Catalog and
// compared against another snapshot.
package snapshot

import (
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/pkg/errors"
)

// FormatVersion is bumped when the JSON layout changes incompatibly.
const FormatVersion = 1

// Snapshot is a serializable catalog build.
type Snapshot struct {
	Version int              `json:"version"`
	Report  *skills.Report   `json:"report"`
	Records []*skills.Record `json:"records"`
}

// New captures idx and the report of the build that produced it.
func New(idx *skills.Index, report *skills.Report) *Snapshot {
	return &Snapshot{
		Version: FormatVersion,
		Report:  report,
		Records: idx.Records(),
	}
}

// FromCatalog captures the current state of c.
func FromCatalog(c *skills.Catalog) (*Snapshot, error) {
	report := c.Report()
	if report == nil {
		return nil, errors.New("catalog has not been built")
	}
	return New(c.Index(), report), nil
}

// Index rebuilds a queryable index from the snapshot's records.
func (s *Snapshot) Index() (*skills.Index, error) {
	return skills.NewIndex(s.Records...)
}

// Restore installs the snapshot into c, replacing its current index.
func (s *Snapshot) Restore(c *skills.Catalog) error {
	idx, err := s.Index()
	if err != nil {
		return errors.Wrap(err, "invalid snapshot")
	}
	c.Load(idx, s.Report)
	return nil
}

// Listing renders one line per record: category, id, title and
// description separated by tabs, plus one line per attachment. It is the
// text compared by Diff.
func (s *Snapshot) Listing() string {
	var b strings.Builder
	for _, r := range s.Records {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", r.Category, r.ID, r.Title, r.Description)
		for _, a := range r.Attachments {
			fmt.Fprintf(&b, "%s\t%s\t+ %s\n", r.Category, r.ID, a)
		}
	}
	return b.String()
}

// Diff returns a unified diff from old's listing to cur's listing, or an
// empty string when they match.
func Diff(oldLabel string, old *Snapshot, curLabel string, cur *Snapshot) string {
	return udiff.Unified(oldLabel, curLabel, old.Listing(), cur.Listing())
}
