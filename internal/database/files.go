package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"corpus-manager/internal/metrics"
)

const fileColumns = `id, path, name, parent_dir, extension, section, size, mod_time,
	fingerprint, first_seen, last_seen, status, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (FileRecord, error) {
	var rec FileRecord
	var modTime, firstSeen, lastSeen int64
	var status string
	var deletedAt sql.NullInt64
	err := row.Scan(&rec.ID, &rec.Path, &rec.Name, &rec.ParentDir, &rec.Extension, &rec.Section,
		&rec.Size, &modTime, &rec.Fingerprint, &firstSeen, &lastSeen, &status, &deletedAt)
	if err != nil {
		return FileRecord{}, err
	}
	rec.ModTime = fromNanos(modTime)
	rec.FirstSeen = fromNanos(firstSeen)
	rec.LastSeen = fromNanos(lastSeen)
	rec.Status = FileStatus(status)
	if deletedAt.Valid {
		t := fromNanos(deletedAt.Int64)
		rec.DeletedAt = &t
	}
	return rec, nil
}

// UpsertFile inserts or refreshes a file record inside a batch and marks it
// active. first_seen is kept from the existing row.
func (d *Database) UpsertFile(b *Batch, rec *FileRecord) error {
	query := `
	INSERT INTO files (path, name, parent_dir, extension, section, size, mod_time,
		fingerprint, first_seen, last_seen, status, deleted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', NULL)
	ON CONFLICT(path) DO UPDATE SET
		name = excluded.name,
		parent_dir = excluded.parent_dir,
		extension = excluded.extension,
		section = excluded.section,
		size = excluded.size,
		mod_time = excluded.mod_time,
		fingerprint = excluded.fingerprint,
		last_seen = excluded.last_seen,
		status = 'active',
		deleted_at = NULL
	`

	firstSeen := rec.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = rec.LastSeen
	}

	_, err := b.tx.ExecContext(b.ctx, query,
		rec.Path,
		rec.Name,
		rec.ParentDir,
		rec.Extension,
		rec.Section,
		rec.Size,
		toNanos(rec.ModTime),
		rec.Fingerprint,
		toNanos(firstSeen),
		toNanos(rec.LastSeen),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.Path, err)
	}
	return nil
}

// MarkDeleted soft-deletes an active record. It reports whether a row changed.
func (d *Database) MarkDeleted(b *Batch, path string, at time.Time) (bool, error) {
	result, err := b.tx.ExecContext(b.ctx,
		`UPDATE files SET status = 'deleted', deleted_at = ? WHERE path = ? AND status = 'active'`,
		toNanos(at), path,
	)
	if err != nil {
		return false, fmt.Errorf("mark deleted %s: %w", path, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ApplyBatch writes changes in one transaction: every change is applied or
// none is.
func (d *Database) ApplyBatch(ctx context.Context, changes []Change) (err error) {
	if len(changes) == 0 {
		return nil
	}

	done := observeQuery("apply_batch")
	defer func() { done(err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.BeginBatch(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	var applyErr error
	for i := range changes {
		c := &changes[i]
		if c.Kind == ChangeDeleted {
			_, applyErr = d.MarkDeleted(b, c.Record.Path, c.At)
		} else {
			rec := c.Record
			if rec.LastSeen.IsZero() {
				rec.LastSeen = c.At
			}
			applyErr = d.UpsertFile(b, &rec)
		}
		if applyErr != nil {
			break
		}
	}

	if err := d.EndBatch(b, applyErr); err != nil {
		return err
	}
	metrics.DBRowsAffected.WithLabelValues("apply_batch").Observe(float64(len(changes)))
	return nil
}

// Snapshot loads every file record, active and deleted, keyed by path.
func (d *Database) Snapshot(ctx context.Context) (_ map[string]FileRecord, err error) {
	done := observeQuery("snapshot")
	defer func() { done(err) }()

	rows, err := d.db.QueryContext(ctx, `SELECT `+fileColumns+` FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot := make(map[string]FileRecord)
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		snapshot[rec.Path] = rec
	}
	return snapshot, rows.Err()
}

// GetFile returns the record for path regardless of status.
func (d *Database) GetFile(ctx context.Context, path string) (_ *FileRecord, err error) {
	done := observeQuery("get_file")
	defer func() { done(err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rec, err := scanFile(d.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// maxInParams stays well under SQLite's host parameter limit.
const maxInParams = 500

// GetFilesByPaths returns the records that exist for paths, keyed by path.
// Unknown paths are absent from the result.
func (d *Database) GetFilesByPaths(ctx context.Context, paths []string) (_ map[string]FileRecord, err error) {
	done := observeQuery("get_files_by_paths")
	defer func() { done(err) }()

	result := make(map[string]FileRecord, len(paths))

	err = d.readTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(paths); start += maxInParams {
			end := min(start+maxInParams, len(paths))
			chunk := paths[start:end]

			args := make([]any, len(chunk))
			for i, p := range chunk {
				args[i] = p
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

			rows, err := tx.QueryContext(ctx,
				`SELECT `+fileColumns+` FROM files WHERE path IN (`+placeholders+`)`, args...)
			if err != nil {
				return err
			}
			for rows.Next() {
				rec, err := scanFile(rows)
				if err != nil {
					rows.Close()
					return err
				}
				result[rec.Path] = rec
			}
			if err := rows.Close(); err != nil {
				return err
			}
			if err := rows.Err(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
