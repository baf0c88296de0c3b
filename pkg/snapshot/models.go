package snapshot

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/pkg/errors"
)

// JSONField stores T as a JSON text column.
type JSONField[T any] struct {
	Data T
}

func (j *JSONField[T]) Scan(value any) error {
	if value == nil {
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.Errorf("cannot scan %T into JSONField", value)
	}
	return json.Unmarshal(raw, &j.Data)
}

func (j JSONField[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type dbBuild struct {
	ID         string                      `db:"id"`
	Root       string                      `db:"root"`
	StartedAt  time.Time                   `db:"started_at"`
	FinishedAt time.Time                   `db:"finished_at"`
	SkillCount int                         `db:"skill_count"`
	Failures   JSONField[[]skills.Failure] `db:"failures"`
	SavedAt    time.Time                   `db:"saved_at"`
}

type dbSkill struct {
	BuildID      string                       `db:"build_id"`
	ID           string                       `db:"id"`
	Position     int                          `db:"position"`
	Tier         string                       `db:"tier"`
	Group        string                       `db:"category_group"`
	Title        string                       `db:"title"`
	Description  string                       `db:"description"`
	License      string                       `db:"license"`
	AllowedTools JSONField[[]string]          `db:"allowed_tools"`
	Metadata     JSONField[map[string]string] `db:"metadata"`
	Root         string                       `db:"root"`
	Body         string                       `db:"body"`
	Outline      JSONField[[]skills.Heading]  `db:"outline"`
	Attachments  JSONField[[]string]          `db:"attachments"`
}

// BuildInfo describes a saved build without its records.
type BuildInfo struct {
	ID         string    `json:"id"`
	Root       string    `json:"root"`
	Skills     int       `json:"skills"`
	Failures   int       `json:"failures"`
	FinishedAt time.Time `json:"finished_at"`
	SavedAt    time.Time `json:"saved_at"`
}

func fromReport(r *skills.Report, savedAt time.Time) *dbBuild {
	failures := r.Failures
	if failures == nil {
		failures = []skills.Failure{}
	}
	return &dbBuild{
		ID:         r.BuildID,
		Root:       r.Root,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
		SkillCount: r.Skills,
		Failures:   JSONField[[]skills.Failure]{Data: failures},
		SavedAt:    savedAt.UTC(),
	}
}

func (b *dbBuild) toReport() *skills.Report {
	failures := b.Failures.Data
	if failures == nil {
		failures = []skills.Failure{}
	}
	return &skills.Report{
		BuildID:    b.ID,
		Root:       b.Root,
		StartedAt:  b.StartedAt,
		FinishedAt: b.FinishedAt,
		Skills:     b.SkillCount,
		Failures:   failures,
	}
}

func (b *dbBuild) toInfo() BuildInfo {
	return BuildInfo{
		ID:         b.ID,
		Root:       b.Root,
		Skills:     b.SkillCount,
		Failures:   len(b.Failures.Data),
		FinishedAt: b.FinishedAt,
		SavedAt:    b.SavedAt,
	}
}

func fromRecord(buildID string, position int, r *skills.Record) *dbSkill {
	return &dbSkill{
		BuildID:      buildID,
		ID:           r.ID,
		Position:     position,
		Tier:         string(r.Category.Tier),
		Group:        r.Category.Group,
		Title:        r.Title,
		Description:  r.Description,
		License:      r.License,
		AllowedTools: JSONField[[]string]{Data: r.AllowedTools},
		Metadata:     JSONField[map[string]string]{Data: r.Metadata},
		Root:         r.Root,
		Body:         r.Body,
		Outline:      JSONField[[]skills.Heading]{Data: r.Outline},
		Attachments:  JSONField[[]string]{Data: r.Attachments},
	}
}

func (s *dbSkill) toRecord() *skills.Record {
	attachments := s.Attachments.Data
	if attachments == nil {
		attachments = []string{}
	}
	return &skills.Record{
		ID:           s.ID,
		Category:     skills.Category{Tier: skills.Tier(s.Tier), Group: s.Group},
		Title:        s.Title,
		Description:  s.Description,
		License:      s.License,
		AllowedTools: s.AllowedTools.Data,
		Metadata:     s.Metadata.Data,
		Root:         s.Root,
		Body:         s.Body,
		Outline:      s.Outline.Data,
		Attachments:  attachments,
	}
}
