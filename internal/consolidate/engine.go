package consolidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"corpus-manager/internal/database"
	"corpus-manager/internal/filelock"
	"corpus-manager/internal/logging"
	"corpus-manager/internal/metrics"
	"corpus-manager/internal/search"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
)

// RecordSource resolves manually selected paths to stored records.
type RecordSource interface {
	GetFilesByPaths(ctx context.Context, paths []string) (map[string]database.FileRecord, error)
}

// JobStore persists consolidation jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *database.ConsolidationJob) error
	FinalizeJob(ctx context.Context, id string, status database.JobStatus, fileCount int, outputPath, errMsg string, finished time.Time) error
	GetJob(ctx context.Context, id string) (*database.ConsolidationJob, error)
}

// Store is what the engine needs from the index database.
type Store interface {
	RecordSource
	JobStore
}

// Querier re-derives a filter selection.
type Querier interface {
	All(ctx context.Context, params search.Params) ([]database.FileRecord, error)
}

// Request selects records either by explicit Paths or by Criteria, never both.
type Request struct {
	Name     string
	Format   Format
	Paths    []string
	Criteria *search.Params
}

func (r *Request) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if r.Format == "" {
		r.Format = FormatMarkdown
	}
	f, err := ParseFormat(string(r.Format))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	r.Format = f

	switch {
	case len(r.Paths) > 0 && r.Criteria != nil:
		return fmt.Errorf("%w: give either paths or criteria, not both", ErrInvalidRequest)
	case len(r.Paths) == 0 && r.Criteria == nil:
		return fmt.Errorf("%w: nothing selected, give paths or criteria", ErrInvalidRequest)
	}
	if r.Criteria != nil {
		if err := r.Criteria.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	return nil
}

// manualSnapshot is the stored criteria of a hand-picked selection.
type manualSnapshot struct {
	Source string   `json:"source"`
	Paths  []string `json:"paths"`
}

// Engine renders selections into artifacts and owns the job lifecycle.
type Engine struct {
	store     Store
	query     Querier
	outputDir string
	markdown  goldmark.Markdown

	// defaultFormat applies to requests that name no format
	defaultFormat Format

	now   func() time.Time
	newID func() string
}

// NewEngine returns an Engine writing artifacts into outputDir.
func NewEngine(store Store, query Querier, outputDir string) *Engine {
	return &Engine{
		store:         store,
		query:         query,
		outputDir:     outputDir,
		markdown:      goldmark.New(),
		defaultFormat: FormatMarkdown,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() string { return uuid.New().String() },
	}
}

// SetDefaultFormat changes the format used when a request names none.
func (e *Engine) SetDefaultFormat(f Format) {
	e.defaultFormat = f
}

// OutputDir returns the artifact directory.
func (e *Engine) OutputDir() string {
	return e.outputDir
}

// Consolidate selects records, writes the artifact and finalizes the job.
// A failed write returns the failed job together with an *ExportError.
func (e *Engine) Consolidate(ctx context.Context, req Request) (*database.ConsolidationJob, error) {
	if req.Format == "" {
		req.Format = e.defaultFormat
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	job := &database.ConsolidationJob{
		ID:        e.newID(),
		Name:      req.Name,
		Format:    string(req.Format),
		CreatedAt: e.now(),
	}
	var snapshot []byte
	var err error
	if req.Criteria != nil {
		job.Source = database.SourceFilter
		snapshot, err = json.Marshal(req.Criteria)
	} else {
		job.Source = database.SourceManual
		snapshot, err = json.Marshal(manualSnapshot{Source: string(database.SourceManual), Paths: req.Paths})
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot criteria: %w", err)
	}
	job.Criteria = string(snapshot)

	if err := e.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	logging.Info("Consolidation %s (%s) started: %s, %s selection", job.ID, job.Name, job.Format, job.Source)

	// From here on the job is finalized whatever happens to ctx.
	finalCtx := context.WithoutCancel(ctx)

	recs, err := e.selectRecords(ctx, req)
	if err != nil {
		e.fail(finalCtx, job, "", err)
		return e.reload(finalCtx, job), fmt.Errorf("select records for job %s: %w", job.ID, err)
	}

	outPath := filepath.Join(e.outputDir, artifactName(job, req.Format))
	if err := e.write(outPath, req.Format, job, recs); err != nil {
		e.fail(finalCtx, job, outPath, err)
		return e.reload(finalCtx, job), &ExportError{JobID: job.ID, Path: outPath, Err: err}
	}

	if err := e.store.FinalizeJob(finalCtx, job.ID, database.JobCompleted, len(recs), outPath, "", e.now()); err != nil {
		return nil, fmt.Errorf("finalize job %s: %w", job.ID, err)
	}

	duration := time.Since(start)
	metrics.ConsolidationJobsTotal.WithLabelValues(job.Format, string(database.JobCompleted)).Inc()
	metrics.ConsolidationDuration.WithLabelValues(job.Format).Observe(duration.Seconds())
	metrics.ConsolidationFiles.Observe(float64(len(recs)))
	logging.Info("Consolidation %s completed: %d files -> %s (%v)", job.ID, len(recs), outPath, duration)

	return e.reload(finalCtx, job), nil
}

func (e *Engine) selectRecords(ctx context.Context, req Request) ([]database.FileRecord, error) {
	if req.Criteria != nil {
		return e.query.All(ctx, *req.Criteria)
	}

	found, err := e.store.GetFilesByPaths(ctx, req.Paths)
	if err != nil {
		return nil, err
	}

	recs := make([]database.FileRecord, 0, len(req.Paths))
	seen := make(map[string]bool, len(req.Paths))
	for _, p := range req.Paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		rec, ok := found[p]
		if !ok {
			logging.Warn("Consolidation skips unindexed path %s", p)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (e *Engine) write(outPath string, format Format, job *database.ConsolidationJob, recs []database.FileRecord) error {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	render := rendererFor(format)
	return filelock.AtomicWriteFunc(outPath, func(w io.Writer) error {
		return render(w, job, recs)
	})
}

func (e *Engine) fail(ctx context.Context, job *database.ConsolidationJob, outPath string, cause error) {
	metrics.ConsolidationJobsTotal.WithLabelValues(job.Format, string(database.JobFailed)).Inc()
	logging.Error("Consolidation %s failed: %v", job.ID, cause)
	if err := e.store.FinalizeJob(ctx, job.ID, database.JobFailed, 0, outPath, cause.Error(), e.now()); err != nil {
		logging.Error("Failed to mark job %s failed: %v", job.ID, err)
	}
}

// reload returns the stored job, falling back to the in-memory copy.
func (e *Engine) reload(ctx context.Context, job *database.ConsolidationJob) *database.ConsolidationJob {
	stored, err := e.store.GetJob(ctx, job.ID)
	if err != nil {
		logging.Warn("Failed to reload job %s: %v", job.ID, err)
		return job
	}
	return stored
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// artifactName is <UTC yyyymmdd_hhmmss>_<safe-name>_<job8>.<ext>.
func artifactName(job *database.ConsolidationJob, format Format) string {
	name := strings.Trim(unsafeName.ReplaceAllString(job.Name, "_"), "_")
	if len(name) > 50 {
		name = strings.TrimRight(name[:50], "_")
	}
	if name == "" {
		name = "export"
	}
	short := strings.ReplaceAll(job.ID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s_%s.%s", job.CreatedAt.UTC().Format("20060102_150405"), name, short, format.Ext())
}

// Preview renders a completed job's artifact as an HTML fragment. Markdown
// is converted; json and text are shown preformatted.
func (e *Engine) Preview(job *database.ConsolidationJob) ([]byte, error) {
	if job.Status != database.JobCompleted {
		return nil, fmt.Errorf("job %s is %s, not completed", job.ID, job.Status)
	}
	content, err := os.ReadFile(job.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var buf bytes.Buffer
	if Format(job.Format) == FormatMarkdown {
		if err := e.markdown.Convert(content, &buf); err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
		return buf.Bytes(), nil
	}

	buf.WriteString("<pre>")
	buf.WriteString(html.EscapeString(string(content)))
	buf.WriteString("</pre>\n")
	return buf.Bytes(), nil
}
