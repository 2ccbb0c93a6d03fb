package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"corpus-manager/internal/consolidate"
	"corpus-manager/internal/database"
	"corpus-manager/internal/doctypes"
	"corpus-manager/internal/filesystem"
	"corpus-manager/internal/logging"
	"corpus-manager/internal/middleware"
	"corpus-manager/internal/search"
	"corpus-manager/internal/streaming"

	"github.com/gorilla/mux"
)

// ConsolidateRequest selects records by explicit paths or by filter
// criteria, never both.
type ConsolidateRequest struct {
	Name     string         `json:"name"`
	Format   string         `json:"format,omitempty"`
	Paths    []string       `json:"paths,omitempty"`
	Criteria *search.Params `json:"criteria,omitempty"`
}

// Consolidate runs an export synchronously and returns the finished job.
// A failed write still returns the job, with status 500.
func (h *Handlers) Consolidate(w http.ResponseWriter, r *http.Request) {
	var req ConsolidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := h.consolidate.Consolidate(r.Context(), consolidate.Request{
		Name:     req.Name,
		Format:   consolidate.Format(req.Format),
		Paths:    req.Paths,
		Criteria: req.Criteria,
	})
	if job != nil {
		middleware.Annotate(r.Context(), "job", job.ID)
		middleware.Annotate(r.Context(), "files", strconv.Itoa(job.FileCount))
	}

	var exportErr *consolidate.ExportError
	switch {
	case errors.As(err, &exportErr):
		writeJSONStatusCode(w, http.StatusInternalServerError, job)
		return
	case err != nil && job != nil:
		// selection failed after the job was recorded
		logging.Error("Consolidation %s failed: %v", job.ID, err)
		writeJSONStatusCode(w, http.StatusInternalServerError, job)
		return
	case err != nil:
		writeError(w, "Consolidation", err)
		return
	}

	writeJSONStatusCode(w, http.StatusCreated, job)
}

// ListJobs returns jobs newest first; limit bounds the count.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	jobs, err := h.db.ListJobs(r.Context(), limit)
	if err != nil {
		writeError(w, "List jobs", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, jobs)
}

// GetJob returns one job.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.db.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "Get job", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, job)
}

// completedJob loads a job whose artifact can be served, writing the error
// response itself when it cannot.
func (h *Handlers) completedJob(w http.ResponseWriter, r *http.Request) (*database.ConsolidationJob, bool) {
	job, err := h.db.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "Get job", err)
		return nil, false
	}
	middleware.Annotate(r.Context(), "job", job.ID)
	if job.Status != database.JobCompleted {
		writeJSONError(w, fmt.Sprintf("job %s is %s", job.ID, job.Status), http.StatusConflict)
		return nil, false
	}
	return job, true
}

// DownloadJob serves a completed job's artifact as an attachment.
func (h *Handlers) DownloadJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.completedJob(w, r)
	if !ok {
		return
	}

	f, err := filesystem.OpenWithRetry(job.OutputPath, filesystem.DefaultRetryConfig())
	if err != nil {
		writeJSONError(w, "Artifact is no longer available", http.StatusGone)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, "Download", err)
		return
	}

	name := filepath.Base(job.OutputPath)
	w.Header().Set("Content-Type", doctypes.MimeType(filepath.Ext(name)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	sw := streaming.NewResponseWriter(r.Context(), w, streaming.DefaultConfig())
	defer sw.Close()
	http.ServeContent(sw, r, name, info.ModTime(), f)

	written, elapsed := sw.Stats()
	middleware.Annotate(r.Context(), "streamed", strconv.FormatInt(written, 10))
	logging.Debug("Served artifact %s: %d bytes in %v", name, written, elapsed)
}

// PreviewJob renders a completed job's artifact as an HTML fragment.
func (h *Handlers) PreviewJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.completedJob(w, r)
	if !ok {
		return
	}

	html, err := h.consolidate.Preview(job)
	if err != nil {
		writeJSONError(w, "Artifact is no longer available", http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(html); err != nil {
		logging.Error("failed to write preview for job %s: %v", job.ID, err)
	}
}
