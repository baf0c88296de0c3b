package snapshot

import (
	"context"
	"database/sql"
	"time"

	"github.com/jingkaihe/skillcat/pkg/db"
	"github.com/jingkaihe/skillcat/pkg/db/migrations"
	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// ErrNoSnapshot is returned by Latest when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Store keeps snapshots in SQLite, one row per build plus its records.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore opens the database at dbPath and brings its schema up to date.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.NewMigrationRunner(sqlDB).Run(ctx, migrations.All()); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to migrate snapshot database")
	}
	return &Store{db: sqlDB, now: time.Now}, nil
}

// Save stores s. Saving a build ID that already exists replaces it.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Report == nil || snap.Report.BuildID == "" {
		return errors.New("snapshot has no build id")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM builds WHERE id = ?", snap.Report.BuildID); err != nil {
		return errors.Wrap(err, "failed to replace build")
	}

	build := fromReport(snap.Report, s.now())
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO builds (id, root, started_at, finished_at, skill_count, failures, saved_at)
		VALUES (:id, :root, :started_at, :finished_at, :skill_count, :failures, :saved_at)
	`, build); err != nil {
		return errors.Wrap(err, "failed to insert build")
	}

	for i, r := range snap.Records {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO skills (build_id, id, position, tier, category_group, title, description,
				license, allowed_tools, metadata, root, body, outline, attachments)
			VALUES (:build_id, :id, :position, :tier, :category_group, :title, :description,
				:license, :allowed_tools, :metadata, :root, :body, :outline, :attachments)
		`, fromRecord(build.ID, i, r)); err != nil {
			return errors.Wrapf(err, "failed to insert skill '%s'", r.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit snapshot")
}

// Load returns the snapshot saved under buildID.
func (s *Store) Load(ctx context.Context, buildID string) (*Snapshot, error) {
	var build dbBuild
	if err := s.db.GetContext(ctx, &build, "SELECT * FROM builds WHERE id = ?", buildID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("snapshot '%s' not found", buildID)
		}
		return nil, errors.Wrap(err, "failed to load build")
	}
	return s.load(ctx, &build)
}

// Latest returns the most recently saved snapshot, or ErrNoSnapshot.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	var build dbBuild
	if err := s.db.GetContext(ctx, &build, "SELECT * FROM builds ORDER BY saved_at DESC, rowid DESC LIMIT 1"); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, errors.Wrap(err, "failed to load latest build")
	}
	return s.load(ctx, &build)
}

func (s *Store) load(ctx context.Context, build *dbBuild) (*Snapshot, error) {
	var rows []dbSkill
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM skills WHERE build_id = ? ORDER BY position", build.ID); err != nil {
		return nil, errors.Wrap(err, "failed to load skills")
	}

	snap := &Snapshot{Version: FormatVersion, Report: build.toReport()}
	snap.Records = make([]*skills.Record, 0, len(rows))
	for i := range rows {
		snap.Records = append(snap.Records, rows[i].toRecord())
	}
	return snap, nil
}

// List returns saved builds, newest first.
func (s *Store) List(ctx context.Context) ([]BuildInfo, error) {
	var builds []dbBuild
	if err := s.db.SelectContext(ctx, &builds, "SELECT * FROM builds ORDER BY saved_at DESC, rowid DESC"); err != nil {
		return nil, errors.Wrap(err, "failed to list builds")
	}
	infos := make([]BuildInfo, 0, len(builds))
	for i := range builds {
		infos = append(infos, builds[i].toInfo())
	}
	return infos, nil
}

// Prune deletes all but the newest keep builds and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, errors.Errorf("keep must not be negative, got %d", keep)
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM builds WHERE id NOT IN (
			SELECT id FROM builds ORDER BY saved_at DESC, rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune builds")
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}
