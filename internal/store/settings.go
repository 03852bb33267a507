package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mirrorvault/internal/pairs"
)

// LoadSettings returns the persisted settings. When the database holds none
// yet, seed is saved and returned with created set.
func (s *Store) LoadSettings(ctx context.Context, seed pairs.Settings) (settings pairs.Settings, created bool, err error) {
	ctx = ensureContext(ctx)

	var (
		interval        int
		startWithSystem int
		mirrorMode      int
		threads         int
		fatFileTiming   int
		retryCount      int
		retryWait       int
	)
	err = s.db.QueryRowContext(ctx, `SELECT check_interval_seconds, start_with_system, mirror_mode,
        threads, fat_file_timing, retry_count, retry_wait_seconds FROM settings WHERE id = 1`).Scan(
		&interval, &startWithSystem, &mirrorMode, &threads, &fatFileTiming, &retryCount, &retryWait,
	)
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.SaveSettings(ctx, seed); err != nil {
			return pairs.Settings{}, false, fmt.Errorf("seed settings: %w", err)
		}
		return seed.Clone(), true, nil
	}
	if err != nil {
		return pairs.Settings{}, false, fmt.Errorf("load settings: %w", err)
	}

	settings = pairs.Settings{
		CheckIntervalSeconds: interval,
		StartWithSystem:      startWithSystem != 0,
		Tool: pairs.ToolOptions{
			MirrorMode:       mirrorMode != 0,
			Threads:          threads,
			FatFileTiming:    fatFileTiming != 0,
			RetryCount:       retryCount,
			RetryWaitSeconds: retryWait,
		},
	}

	list, err := s.loadPairs(ctx)
	if err != nil {
		return pairs.Settings{}, false, err
	}
	settings.Pairs = list
	return settings, false, nil
}

func (s *Store) loadPairs(ctx context.Context) ([]pairs.Pair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, position, source, destination, enabled FROM pairs ORDER BY position, rowid`)
	if err != nil {
		return nil, fmt.Errorf("load pairs: %w", err)
	}
	defer rows.Close()

	var list []pairs.Pair
	for rows.Next() {
		var (
			p       pairs.Pair
			enabled int
		)
		if err := rows.Scan(&p.ID, &p.Priority, &p.Source, &p.Destination, &enabled); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		p.Enabled = enabled != 0
		list = append(list, p)
	}
	return list, rows.Err()
}

// SaveSettings replaces the persisted settings with s in one transaction.
// It satisfies pairs.Saver.
func (s *Store) SaveSettings(ctx context.Context, settings pairs.Settings) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.saveSettingsTx(ctx, settings)
	})
}

func (s *Store) saveSettingsTx(ctx context.Context, settings pairs.Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx, `INSERT INTO settings (
            id, check_interval_seconds, start_with_system, mirror_mode, threads,
            fat_file_timing, retry_count, retry_wait_seconds, updated_at
        ) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            check_interval_seconds = excluded.check_interval_seconds,
            start_with_system = excluded.start_with_system,
            mirror_mode = excluded.mirror_mode,
            threads = excluded.threads,
            fat_file_timing = excluded.fat_file_timing,
            retry_count = excluded.retry_count,
            retry_wait_seconds = excluded.retry_wait_seconds,
            updated_at = excluded.updated_at`,
		settings.CheckIntervalSeconds,
		boolToInt(settings.StartWithSystem),
		boolToInt(settings.Tool.MirrorMode),
		settings.Tool.Threads,
		boolToInt(settings.Tool.FatFileTiming),
		settings.Tool.RetryCount,
		settings.Tool.RetryWaitSeconds,
		now,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pairs`); err != nil {
		return fmt.Errorf("clear pairs: %w", err)
	}
	for i, p := range settings.Pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pairs (id, position, source, destination, enabled) VALUES (?, ?, ?, ?, ?)`,
			p.ID, i, p.Source, p.Destination, boolToInt(p.Enabled),
		); err != nil {
			return fmt.Errorf("save pair %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}
