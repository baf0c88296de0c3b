package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/skillcat/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllApplyAndRollBack(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.Open(ctx, filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	runner := db.NewMigrationRunner(sqlDB)
	require.NoError(t, runner.Run(ctx, All()))

	var tables []string
	require.NoError(t, sqlDB.Select(&tables,
		`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('builds', 'skills') ORDER BY name`))
	assert.Equal(t, []string{"builds", "skills"}, tables)

	versions, err := runner.AppliedVersions(ctx)
	require.NoError(t, err)
	assert.Len(t, versions, len(All()))

	for range All() {
		require.NoError(t, runner.Rollback(ctx, All()))
	}
	versions, err = runner.AppliedVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)
}
