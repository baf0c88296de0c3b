package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillcat/pkg/db"
	"github.com/pkg/errors"
)

// Migration20261019090000CreateBuilds creates the builds table, one row
// per saved catalog build. Failures are stored as a JSON array.
func Migration20261019090000CreateBuilds() db.Migration {
	return db.Migration{
		Version:     20261019090000,
		Description: "Create builds table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS builds (
					id TEXT PRIMARY KEY,
					root TEXT NOT NULL,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL,
					skill_count INTEGER NOT NULL,
					failures TEXT NOT NULL,
					saved_at DATETIME NOT NULL
				)
			`)
			return errors.Wrap(err, "failed to create builds table")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS builds")
			return errors.Wrap(err, "failed to drop builds table")
		},
	}
}
