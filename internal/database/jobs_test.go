package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJobLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	job := &ConsolidationJob{
		ID:       "job-1",
		Name:     "weekly",
		Source:   SourceManual,
		Criteria: `{"source":"manual","paths":["a.md"]}`,
		Format:   "markdown",
	}
	if err := db.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if job.Status != JobRunning || job.CreatedAt.IsZero() {
		t.Errorf("CreateJob did not initialize job: %+v", job)
	}

	got, err := db.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != JobRunning || got.FinishedAt != nil || got.Criteria != job.Criteria {
		t.Errorf("unexpected running job: %+v", got)
	}

	finished := time.Now().UTC()
	if err := db.FinalizeJob(ctx, "job-1", JobCompleted, 1, "/tmp/out.md", "", finished); err != nil {
		t.Fatalf("FinalizeJob failed: %v", err)
	}

	got, _ = db.GetJob(ctx, "job-1")
	if got.Status != JobCompleted || got.FileCount != 1 || got.OutputPath != "/tmp/out.md" {
		t.Errorf("unexpected completed job: %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("expected finished at %v, got %v", finished, got.FinishedAt)
	}

	err = db.FinalizeJob(ctx, "job-1", JobFailed, 0, "", "boom", finished)
	if !errors.Is(err, ErrJobFinalized) {
		t.Errorf("expected ErrJobFinalized, got %v", err)
	}
	got, _ = db.GetJob(ctx, "job-1")
	if got.Status != JobCompleted {
		t.Errorf("finalized job changed status to %s", got.Status)
	}

	if err := db.FinalizeJob(ctx, "missing", JobFailed, 0, "", "", finished); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := db.FinalizeJob(ctx, "job-1", JobRunning, 0, "", "", finished); err == nil {
		t.Error("expected error finalizing to running")
	}
}

func TestListJobsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i, id := range []string{"old", "mid", "new"} {
		job := &ConsolidationJob{
			ID:        id,
			Name:      id,
			Source:    SourceFilter,
			Criteria:  "{}",
			Format:    "json",
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		}
		if err := db.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob failed: %v", err)
		}
	}

	jobs, err := db.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 3 || jobs[0].ID != "new" || jobs[2].ID != "old" {
		t.Errorf("unexpected order: %+v", jobs)
	}

	limited, _ := db.ListJobs(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(limited))
	}

	if _, err := db.GetJob(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
