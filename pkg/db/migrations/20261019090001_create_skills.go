package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillcat/pkg/db"
	"github.com/pkg/errors"
)

// Migration20261019090001CreateSkills creates the skills table holding
// the records of each saved build. List valued columns are JSON.
func Migration20261019090001CreateSkills() db.Migration {
	return db.Migration{
		Version:     20261019090001,
		Description: "Create skills table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS skills (
					build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
					id TEXT NOT NULL,
					position INTEGER NOT NULL,
					tier TEXT NOT NULL,
					category_group TEXT NOT NULL DEFAULT '',
					title TEXT NOT NULL,
					description TEXT NOT NULL,
					license TEXT NOT NULL DEFAULT '',
					allowed_tools TEXT NOT NULL DEFAULT '[]',
					metadata TEXT NOT NULL DEFAULT '{}',
					root TEXT NOT NULL,
					body TEXT NOT NULL,
					outline TEXT NOT NULL DEFAULT '[]',
					attachments TEXT NOT NULL DEFAULT '[]',
					PRIMARY KEY (build_id, id)
				)
			`)
			return errors.Wrap(err, "failed to create skills table")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS skills")
			return errors.Wrap(err, "failed to drop skills table")
		},
	}
}
