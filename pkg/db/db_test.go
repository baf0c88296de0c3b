package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sqlx.DB, name string) bool {
	t.Helper()
	var exists bool
	require.NoError(t, db.Get(&exists, `SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name=?`, name))
	return exists
}

var (
	createWidgets = Migration{
		Version:     20260101000001,
		Description: "Create widgets",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY)")
			return err
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE widgets")
			return err
		},
	}
	addWidgetName = Migration{
		Version:     20260101000002,
		Description: "Add widget name",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("ALTER TABLE widgets ADD COLUMN name TEXT")
			return err
		},
	}
)

func TestOpen(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, VerifyConfiguration(context.Background(), db))
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "deeper", "test.db")

	db, err := Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Dir(dbPath))
	require.NoError(t, err)
}

func TestDefaultDBPath(t *testing.T) {
	t.Run("with SKILLCAT_BASE_PATH", func(t *testing.T) {
		t.Setenv("SKILLCAT_BASE_PATH", "/custom/path")
		path, err := DefaultDBPath()
		require.NoError(t, err)
		assert.Equal(t, "/custom/path/snapshots.db", path)
	})

	t.Run("home directory fallback", func(t *testing.T) {
		t.Setenv("SKILLCAT_BASE_PATH", "")
		path, err := DefaultDBPath()
		require.NoError(t, err)
		home, _ := os.UserHomeDir()
		assert.Equal(t, filepath.Join(home, ".skillcat", "snapshots.db"), path)
	})
}

func TestMigrationRunner(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	// Out of order on purpose; the runner sorts by version.
	require.NoError(t, runner.Run(ctx, []Migration{addWidgetName, createWidgets}))
	assert.True(t, tableExists(t, db, "widgets"))

	versions, err := runner.AppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{20260101000001, 20260101000002}, versions)
}

func TestMigrationRunnerIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	require.NoError(t, runner.Run(ctx, []Migration{createWidgets}))
	require.NoError(t, runner.Run(ctx, []Migration{createWidgets}))

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 1, count)
}

func TestMigrationRunnerFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	broken := Migration{
		Version:     20260101000003,
		Description: "Broken",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec("CREATE TABLE half_done (id INTEGER)"); err != nil {
				return err
			}
			_, err := tx.Exec("NOT VALID SQL")
			return err
		},
	}

	err := runner.Run(ctx, []Migration{createWidgets, broken})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply migration 20260101000003")
	assert.False(t, tableExists(t, db, "half_done"))

	versions, err := runner.AppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{20260101000001}, versions)
}

func TestMigrationRunnerRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	require.NoError(t, runner.Run(ctx, []Migration{createWidgets}))
	require.NoError(t, runner.Rollback(ctx, []Migration{createWidgets}))
	assert.False(t, tableExists(t, db, "widgets"))

	versions, err := runner.AppliedVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)

	// Nothing left to roll back.
	require.NoError(t, runner.Rollback(ctx, []Migration{createWidgets}))
}

func TestMigrationRunnerRollbackWithoutDown(t *testing.T) {
	ctx := context.Background()
	runner := NewMigrationRunner(openTestDB(t))

	all := []Migration{createWidgets, addWidgetName}
	require.NoError(t, runner.Run(ctx, all))

	err := runner.Rollback(ctx, all)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rollback function")
}
