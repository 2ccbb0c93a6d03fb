package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"corpus-manager/internal/indexer"
	"corpus-manager/internal/middleware"
)

// IndexStatusResponse is the live and last-run state of the indexer.
type IndexStatusResponse struct {
	Indexing bool                  `json:"indexing"`
	Progress indexer.IndexProgress `json:"progress"`
	LastRun  *indexer.RunStats     `json:"lastRun,omitempty"`
	LastFull string                `json:"lastFullIndex,omitempty"`
}

// TriggerIndex starts a background run. mode is full (default) or
// incremental; path may repeat to restrict an incremental run. A run already
// in progress answers 409.
func (h *Handlers) TriggerIndex(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	mode := indexer.Mode(query.Get("mode"))
	if mode == "" {
		mode = indexer.ModeFull
	}
	if mode != indexer.ModeFull && mode != indexer.ModeIncremental {
		writeJSONError(w, "mode must be full or incremental", http.StatusBadRequest)
		return
	}

	var opts indexer.RunOptions
	if v := query.Get("verify"); v != "" {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, "verify must be a boolean", http.StatusBadRequest)
			return
		}
		opts.Verify = verify
	}

	middleware.Annotate(r.Context(), "mode", string(mode))
	err := h.indexer.Trigger(mode, opts, query["path"]...)
	if errors.Is(err, indexer.ErrRunInProgress) {
		writeJSONStatusCode(w, http.StatusConflict, map[string]string{
			"status":  "already_running",
			"message": "Indexing is already in progress",
		})
		return
	}
	if err != nil {
		writeError(w, "Trigger index", err)
		return
	}

	writeJSONStatusCode(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"mode":    string(mode),
		"message": "Indexing started",
	})
}

// IndexStatus reports whether a run is active, its progress, and the last
// finished run.
func (h *Handlers) IndexStatus(w http.ResponseWriter, r *http.Request) {
	response := IndexStatusResponse{
		Indexing: h.indexer.IsIndexing(),
		Progress: h.indexer.GetProgress(),
		LastRun:  h.indexer.LastRun(),
	}
	// After a restart the last run is only known from the database.
	if response.LastRun == nil {
		if raw, err := h.db.GetLastRunStats(r.Context()); err == nil && raw != "" {
			var stats indexer.RunStats
			if json.Unmarshal([]byte(raw), &stats) == nil {
				response.LastRun = &stats
			}
		}
	}
	if t, err := h.db.GetLastIndexTime(r.Context(), string(indexer.ModeFull)); err == nil && !t.IsZero() {
		response.LastFull = t.Format("2006-01-02T15:04:05Z07:00")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}
