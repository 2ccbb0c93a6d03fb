package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	metaLastIndex     = "last_index"
	metaLastRunStats  = "last_run_stats"
	metaLastIndexMode = "last_%s_index"
)

// GetMetadata retrieves a metadata value by key.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("metadata %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetLastIndexTime returns when the last run of mode ("full" or
// "incremental") finished; an empty mode means any run. Never-run yields
// the zero time.
func (d *Database) GetLastIndexTime(ctx context.Context, mode string) (time.Time, error) {
	key := metaLastIndex
	if mode != "" {
		key = fmt.Sprintf(metaLastIndexMode, mode)
	}
	value, err := d.GetMetadata(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

// RecordIndexRun stores the finish time of a run and its stats JSON.
func (d *Database) RecordIndexRun(ctx context.Context, mode string, finished time.Time, statsJSON string) error {
	stamp := finished.UTC().Format(time.RFC3339Nano)
	for _, kv := range [][2]string{
		{metaLastIndex, stamp},
		{fmt.Sprintf(metaLastIndexMode, mode), stamp},
		{metaLastRunStats, statsJSON},
	} {
		if err := d.SetMetadata(ctx, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// GetLastRunStats returns the stats JSON stored by RecordIndexRun, or ""
// if no run was recorded.
func (d *Database) GetLastRunStats(ctx context.Context) (string, error) {
	value, err := d.GetMetadata(ctx, metaLastRunStats)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}
