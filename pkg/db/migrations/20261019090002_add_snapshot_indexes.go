package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillcat/pkg/db"
	"github.com/pkg/errors"
)

// Migration20261019090002AddSnapshotIndexes speeds up "latest build" and
// ordered record loads.
func Migration20261019090002AddSnapshotIndexes() db.Migration {
	return db.Migration{
		Version:     20261019090002,
		Description: "Add snapshot indexes",
		Up: func(tx *sql.Tx) error {
			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_builds_saved_at ON builds(saved_at DESC)",
				"CREATE INDEX IF NOT EXISTS idx_skills_build_position ON skills(build_id, position)",
			}
			for _, stmt := range indexes {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrapf(err, "failed to execute: %s", stmt)
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			for _, name := range []string{"idx_skills_build_position", "idx_builds_saved_at"} {
				if _, err := tx.Exec("DROP INDEX IF EXISTS " + name); err != nil {
					return errors.Wrapf(err, "failed to drop index %s", name)
				}
			}
			return nil
		},
	}
}
