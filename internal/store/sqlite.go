package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hawthorn-media/keyword-cli/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	dir           TEXT NOT NULL,
	status        TEXT NOT NULL,
	seed_count    INTEGER NOT NULL DEFAULT 0,
	enrich_count  INTEGER NOT NULL DEFAULT 0,
	filter_count  INTEGER NOT NULL DEFAULT 0,
	scored_count  INTEGER NOT NULL DEFAULT 0,
	export_count  INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	started_at    TEXT NOT NULL,
	completed_at  TEXT NOT NULL DEFAULT ''
);
`

// Store is the run ledger: one row per pipeline run.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the ledger database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "store: apply schema")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run record.
func (s *Store) CreateRun(ctx context.Context, run *model.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, dir, status, seed_count, enrich_count,
			filter_count, scored_count, export_count, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dir, string(run.Status),
		run.SeedCount, run.EnrichCount, run.FilterCount, run.ScoredCount, run.ExportCount,
		run.Error, formatTime(run.StartedAt), formatTime(run.CompletedAt),
	)
	if err != nil {
		return eris.Wrap(err, "store: insert run")
	}
	return nil
}

// UpdateRun rewrites the mutable fields of an existing run record.
func (s *Store) UpdateRun(ctx context.Context, run *model.Run) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, seed_count = ?, enrich_count = ?,
			filter_count = ?, scored_count = ?, export_count = ?,
			error = ?, completed_at = ?
		WHERE id = ?`,
		string(run.Status),
		run.SeedCount, run.EnrichCount, run.FilterCount, run.ScoredCount, run.ExportCount,
		run.Error, formatTime(run.CompletedAt), run.ID,
	)
	if err != nil {
		return eris.Wrap(err, "store: update run")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: update run rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: run %s not found", run.ID)
	}
	return nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, dir, status, seed_count, enrich_count, filter_count,
			scored_count, export_count, error, started_at, completed_at
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("store: run %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: get run")
	}
	return run, nil
}

// ListRuns returns up to limit runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dir, status, seed_count, enrich_count, filter_count,
			scored_count, export_count, error, started_at, completed_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan run")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate runs")
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.Run, error) {
	var run model.Run
	var status, startedAt, completedAt string
	if err := sc.Scan(&run.ID, &run.Dir, &status,
		&run.SeedCount, &run.EnrichCount, &run.FilterCount,
		&run.ScoredCount, &run.ExportCount,
		&run.Error, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	run.Status = model.RunStatus(status)
	run.StartedAt = parseTime(startedAt)
	run.CompletedAt = parseTime(completedAt)
	return &run, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
