// Package migrations holds the snapshot schema. Versions are
// YYYYMMDDHHmmss timestamps; append new migrations to All.
package migrations

import (
	"github.com/jingkaihe/skillcat/pkg/db"
)

// All returns every schema migration.
func All() []db.Migration {
	return []db.Migration{
		Migration20261019090000CreateBuilds(),
		Migration20261019090001CreateSkills(),
		Migration20261019090002AddSnapshotIndexes(),
	}
}
