package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
	"github.com/gopalvishwakrma/dojialert/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the RunStore port interface.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save inserts or replaces a run and its matches in a single transaction.
func (r *RunRepo) Save(ctx context.Context, run model.Run) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsertRun = `
		INSERT INTO runs (
			id, trigger_kind, status, started_at, finished_at,
			symbols_scanned, symbols_skipped, fetch_errors, notified, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at,
			symbols_scanned = excluded.symbols_scanned,
			symbols_skipped = excluded.symbols_skipped,
			fetch_errors = excluded.fetch_errors,
			notified = excluded.notified,
			error = excluded.error
	`

	notified := 0
	if run.Notified {
		notified = 1
	}

	_, err = tx.ExecContext(ctx, upsertRun,
		run.ID, string(run.Trigger), string(run.Status),
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.SymbolsScanned, run.SymbolsSkipped, run.FetchErrors, notified, run.Error,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear matches for run %s: %w", run.ID, err)
	}

	const insertMatch = `
		INSERT INTO matches (
			run_id, position, symbol, pattern,
			open_price, high_price, low_price, close_price,
			window_start, window_end, ticks
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, m := range run.Matches {
		_, err := tx.ExecContext(ctx, insertMatch,
			run.ID, i, m.Symbol, string(m.Pattern),
			m.Candle.Open, m.Candle.High, m.Candle.Low, m.Candle.Close,
			formatTime(m.Candle.WindowStart), formatTime(m.Candle.WindowEnd), m.Candle.Ticks,
		)
		if err != nil {
			return fmt.Errorf("save match %s for run %s: %w", m.Symbol, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns the run with the given ID including its matches, or (nil, nil)
// if no such run exists.
func (r *RunRepo) Get(ctx context.Context, id string) (*model.Run, error) {
	const query = `
		SELECT id, trigger_kind, status, started_at, finished_at,
			symbols_scanned, symbols_skipped, fetch_errors, notified, error
		FROM runs WHERE id = ?
	`

	run, err := scanRun(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	matches, err := r.matchesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Matches = matches

	return &run, nil
}

// ListRecent returns up to limit runs ordered newest first. Matches are not
// loaded; use Get for the detail view.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.Run, error) {
	const query = `
		SELECT id, trigger_kind, status, started_at, finished_at,
			symbols_scanned, symbols_skipped, fetch_errors, notified, error
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepo) matchesFor(ctx context.Context, runID string) ([]model.Match, error) {
	const query = `
		SELECT symbol, pattern, open_price, high_price, low_price, close_price,
			window_start, window_end, ticks
		FROM matches WHERE run_id = ? ORDER BY position
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list matches for run %s: %w", runID, err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		var pattern, windowStart, windowEnd string
		if err := rows.Scan(
			&m.Symbol, &pattern,
			&m.Candle.Open, &m.Candle.High, &m.Candle.Low, &m.Candle.Close,
			&windowStart, &windowEnd, &m.Candle.Ticks,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Pattern = model.Pattern(pattern)
		if m.Candle.WindowStart, err = parseTime(windowStart); err != nil {
			return nil, fmt.Errorf("parse window_start: %w", err)
		}
		if m.Candle.WindowEnd, err = parseTime(windowEnd); err != nil {
			return nil, fmt.Errorf("parse window_end: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}

	return matches, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var run model.Run
	var trigger, status, startedAt, finishedAt string
	var notified int

	if err := row.Scan(
		&run.ID, &trigger, &status, &startedAt, &finishedAt,
		&run.SymbolsScanned, &run.SymbolsSkipped, &run.FetchErrors, &notified, &run.Error,
	); err != nil {
		return model.Run{}, err
	}

	run.Trigger = model.TriggerKind(trigger)
	run.Status = model.RunStatus(status)
	run.Notified = notified != 0

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return model.Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return model.Run{}, fmt.Errorf("parse finished_at: %w", err)
	}

	return run, nil
}

// formatTime stores instants as UTC RFC 3339 text, which sorts lexically.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// parseTime parses a time string stored in SQLite. SQLite has no native datetime
// type, so several text formats are accepted.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05.000000000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
