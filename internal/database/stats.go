package database

import (
	"context"
	"database/sql"
	"fmt"

	"corpus-manager/internal/metrics"
)

// CalculateStats summarizes the index from one committed snapshot.
func (d *Database) CalculateStats(ctx context.Context) (_ *IndexStats, err error) {
	done := observeQuery("calculate_stats")
	defer func() { done(err) }()

	stats := &IndexStats{
		ByExtension: make(map[string]int64),
		BySection:   make(map[string]int64),
	}

	err = d.readTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			SELECT
				COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN status = 'deleted' THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN status = 'active' THEN size ELSE 0 END), 0)
			FROM files
		`).Scan(&stats.ActiveFiles, &stats.DeletedFiles, &stats.TotalBytes); err != nil {
			return fmt.Errorf("totals: %w", err)
		}

		groups := []struct {
			column string
			dest   map[string]int64
		}{
			{"extension", stats.ByExtension},
			{"section", stats.BySection},
		}
		for _, g := range groups {
			if err := countBy(ctx, tx, g.column, g.dest); err != nil {
				return err
			}
		}

		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags").Scan(&stats.Tags); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM consolidation_jobs").Scan(&stats.Jobs); err != nil {
			return fmt.Errorf("jobs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if t, err := d.GetLastIndexTime(ctx, "full"); err == nil {
		stats.LastFullIndex = t
	}
	if t, err := d.GetLastIndexTime(ctx, ""); err == nil {
		stats.LastIndex = t
	}

	return stats, nil
}

// column is one of a fixed set of identifiers, never user input.
func countBy(ctx context.Context, tx *sql.Tx, column string, dest map[string]int64) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM files WHERE status = 'active' GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		dest[key] = n
	}
	return rows.Err()
}

// GetStats implements metrics.StatsProvider.
func (d *Database) GetStats(ctx context.Context) (metrics.Stats, error) {
	stats, err := d.CalculateStats(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}
	return metrics.Stats{
		ActiveFiles:  stats.ActiveFiles,
		DeletedFiles: stats.DeletedFiles,
		TotalBytes:   stats.TotalBytes,
		ByExtension:  stats.ByExtension,
		Sections:     len(stats.BySection),
		Tags:         stats.Tags,
	}, nil
}
