package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteStore implements Journal using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS outreach_runs (
	id           TEXT PRIMARY KEY,
	row_id       TEXT NOT NULL,
	source_table TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL DEFAULT '',
	mode         TEXT NOT NULL DEFAULT '',
	outcome      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT '',
	max_score    INTEGER NOT NULL DEFAULT 0,
	recipient    TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_outreach_runs_outcome ON outreach_runs(outcome);
CREATE INDEX IF NOT EXISTS idx_outreach_runs_website ON outreach_runs(website);
CREATE INDEX IF NOT EXISTS idx_outreach_runs_created_at ON outreach_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run model.Run) (*model.Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outreach_runs (id, row_id, source_table, website, mode, outcome, status, max_score, recipient, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RowID, run.SourceTable, run.Website, string(run.Mode), string(run.State),
		string(run.Status), run.MaxScore, run.Recipient, run.Error, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &run, nil
}

const sqliteRunColumns = `id, row_id, source_table, website, mode, outcome, status, max_score, recipient, error, created_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM outreach_runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM outreach_runs WHERE 1=1`
	var args []any

	if filter.State != "" {
		query += ` AND outcome = ?`
		args = append(args, string(filter.State))
	}
	if filter.Website != "" {
		query += ` AND website = ?`
		args = append(args, filter.Website)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.Run, error) {
	var r model.Run
	var mode, state, status string
	if err := sc.Scan(&r.ID, &r.RowID, &r.SourceTable, &r.Website, &mode, &state,
		&status, &r.MaxScore, &r.Recipient, &r.Error, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Mode = model.Mode(mode)
	r.State = model.RowState(state)
	r.Status = model.Status(status)
	return &r, nil
}
