package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrJobFinalized is returned when finalizing a job that already finished.
var ErrJobFinalized = errors.New("job already finalized")

const jobColumns = `id, name, source, criteria, format, file_count, output_path,
	status, error, created_at, finished_at`

func scanJob(row rowScanner) (ConsolidationJob, error) {
	var job ConsolidationJob
	var source, status string
	var createdAt int64
	var finishedAt sql.NullInt64

	err := row.Scan(&job.ID, &job.Name, &source, &job.Criteria, &job.Format, &job.FileCount,
		&job.OutputPath, &status, &job.Error, &createdAt, &finishedAt)
	if err != nil {
		return ConsolidationJob{}, err
	}
	job.Source = JobSource(source)
	job.Status = JobStatus(status)
	job.CreatedAt = fromNanos(createdAt)
	if finishedAt.Valid {
		t := fromNanos(finishedAt.Int64)
		job.FinishedAt = &t
	}
	return job, nil
}

// CreateJob inserts a job in the running state.
func (d *Database) CreateJob(ctx context.Context, job *ConsolidationJob) (err error) {
	done := observeQuery("create_job")
	defer func() { done(err) }()

	if job.ID == "" {
		return errors.New("job id is required")
	}
	job.Status = JobRunning
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO consolidation_jobs (id, name, source, criteria, format, file_count, output_path, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', ?)
	`, job.ID, job.Name, string(job.Source), job.Criteria, job.Format, job.FileCount, job.OutputPath,
		string(job.Status), toNanos(job.CreatedAt))
	if err != nil {
		return fmt.Errorf("create job %s: %w", job.ID, err)
	}
	return nil
}

// FinalizeJob moves a running job to completed or failed. A job is finalized
// at most once; a second call returns ErrJobFinalized.
func (d *Database) FinalizeJob(ctx context.Context, id string, status JobStatus, fileCount int, outputPath, errMsg string, finished time.Time) (err error) {
	done := observeQuery("finalize_job")
	defer func() { done(err) }()

	if status != JobCompleted && status != JobFailed {
		return fmt.Errorf("invalid final status %q", status)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		UPDATE consolidation_jobs
		SET status = ?, file_count = ?, output_path = ?, error = ?, finished_at = ?
		WHERE id = ? AND status = 'running'
	`, string(status), fileCount, outputPath, errMsg, toNanos(finished), id)
	if err != nil {
		return fmt.Errorf("finalize job %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var exists bool
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) > 0 FROM consolidation_jobs WHERE id = ?", id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("job %s: %w", id, ErrJobFinalized)
	}
	return nil
}

// GetJob returns one job.
func (d *Database) GetJob(ctx context.Context, id string) (_ *ConsolidationJob, err error) {
	done := observeQuery("get_job")
	defer func() { done(err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	job, err := scanJob(d.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM consolidation_jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns jobs newest first. limit <= 0 returns all.
func (d *Database) ListJobs(ctx context.Context, limit int) (_ []ConsolidationJob, err error) {
	done := observeQuery("list_jobs")
	defer func() { done(err) }()

	query := `SELECT ` + jobColumns + ` FROM consolidation_jobs ORDER BY created_at DESC, id ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []ConsolidationJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
