package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Run is one finished pair execution.
type Run struct {
	ID               int64         `json:"id"`
	PairID           string        `json:"pair_id"`
	Source           string        `json:"source"`
	Destination      string        `json:"destination"`
	Outcome          string        `json:"outcome"`
	Message          string        `json:"message,omitempty"`
	ExitCode         int           `json:"exit_code"`
	FilesCopied      int64         `json:"files_copied"`
	BytesTransferred int64         `json:"bytes_transferred"`
	Duration         time.Duration `json:"duration"`
	Trigger          string        `json:"trigger,omitempty"`
	FinishedAt       time.Time     `json:"finished_at"`
}

// RunFilter narrows ListRuns. A zero Limit means 50.
type RunFilter struct {
	PairID string
	Limit  int
}

const defaultRunLimit = 50

// RecordRun appends run to the history and returns its id.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(run.PairID) == "" {
		return 0, fmt.Errorf("record run: pair id is required")
	}
	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO runs (
                pair_id, source, destination, outcome, message, exit_code,
                files_copied, bytes_transferred, duration_ms, run_trigger, finished_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.PairID,
			nullableString(run.Source),
			nullableString(run.Destination),
			run.Outcome,
			nullableString(run.Message),
			run.ExitCode,
			run.FilesCopied,
			run.BytesTransferred,
			run.Duration.Milliseconds(),
			nullableString(run.Trigger),
			finished.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

// ListRuns returns the newest runs first.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	ctx = ensureContext(ctx)
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}

	query := `SELECT id, pair_id, source, destination, outcome, message, exit_code,
        files_copied, bytes_transferred, duration_ms, run_trigger, finished_at FROM runs`
	args := []any{}
	if id := strings.TrimSpace(filter.PairID); id != "" {
		query += ` WHERE pair_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// OutcomeCounts returns the number of recorded runs per outcome.
func (s *Store) OutcomeCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT outcome, COUNT(1) FROM runs GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		counts[outcome] = count
	}
	return counts, rows.Err()
}

// PruneRuns deletes history older than cutoff and reports how many rows went.
func (s *Store) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE finished_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

// DeleteRunsForPair drops the history of a removed pair.
func (s *Store) DeleteRunsForPair(ctx context.Context, pairID string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE pair_id = ?`, pairID)
		return err
	})
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		source      sql.NullString
		destination sql.NullString
		message     sql.NullString
		trigger     sql.NullString
		durationMS  int64
		finishedRaw string
	)
	if err := scanner.Scan(
		&run.ID,
		&run.PairID,
		&source,
		&destination,
		&run.Outcome,
		&message,
		&run.ExitCode,
		&run.FilesCopied,
		&run.BytesTransferred,
		&durationMS,
		&trigger,
		&finishedRaw,
	); err != nil {
		return Run{}, err
	}
	run.Source = source.String
	run.Destination = destination.String
	run.Message = message.String
	run.Trigger = trigger.String
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if finished, err := parseTimeString(finishedRaw); err == nil {
		run.FinishedAt = finished
	}
	return run, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
