// Package skills indexes a tree of agent skill documents. Each skill is a
// directory containing a SKILL.md file with YAML front-matter describing
// the skill, optionally accompanied by references/, scripts/ and
// templates/ subdirectories. The index serves summaries first and full
// content or attachments only on request.
package skills

import (
	"strings"
)

const (
	skillFileName = "SKILL.md"

	curatedDir      = "curated"
	experimentalDir = "experimental"
)

// attachmentDirs are the only subdirectories of a skill whose files are
// listed as attachments.
var attachmentDirs = []string{"references", "scripts", "templates"}

// Tier separates reviewed skills from work-in-progress ones
type Tier string

const (
	TierCurated      Tier = curatedDir
	TierExperimental Tier = experimentalDir
)

// Category locates a skill in the catalog layout. Group is empty for
// experimental skills.
type Category struct {
	Tier  Tier   `json:"tier" yaml:"tier"`
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
}

// String returns the slash form used by filters, e.g. "curated/utilities".
func (c Category) String() string {
	if c.Group == "" {
		return string(c.Tier)
	}
	return string(c.Tier) + "/" + c.Group
}

// Heading is an entry in a skill body's outline
type Heading struct {
	Level int    `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
}

// Summary is the metadata tier of a skill, returned by list and search.
type Summary struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Category    Category `json:"category" yaml:"category"`
}

// Record is a fully loaded skill. Records are immutable once built.
type Record struct {
	ID           string            `json:"id" yaml:"id"`
	Category     Category          `json:"category" yaml:"category"`
	Title        string            `json:"title" yaml:"title"`
	Description  string            `json:"description" yaml:"description"`
	License      string            `json:"license,omitempty" yaml:"license,omitempty"`
	AllowedTools []string          `json:"allowed_tools,omitempty" yaml:"allowed_tools,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Root         string            `json:"root" yaml:"root"`
	Body         string            `json:"body" yaml:"body"`
	Outline      []Heading         `json:"outline,omitempty" yaml:"outline,omitempty"`
	Attachments  []string          `json:"attachments" yaml:"attachments"`
}

// Summary returns the metadata tier of the record.
func (r *Record) Summary() Summary {
	return Summary{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
	}
}

// matches reports whether the lower-cased keyword occurs in the title or
// description.
func (r *Record) matches(lowerKeyword string) bool {
	return strings.Contains(strings.ToLower(r.Title), lowerKeyword) ||
		strings.Contains(strings.ToLower(r.Description), lowerKeyword)
}
