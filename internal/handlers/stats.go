package handlers

import (
	"net/http"

	"corpus-manager/internal/database"
	"corpus-manager/internal/indexer"
)

// StatsResponse is the corpus summary plus indexer state.
type StatsResponse struct {
	*database.IndexStats
	Indexing bool              `json:"indexing"`
	LastRun  *indexer.RunStats `json:"lastRun,omitempty"`
}

// GetStats returns corpus totals by extension and section, tag and job
// counts, and the last index times.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.CalculateStats(r.Context())
	if err != nil {
		writeError(w, "Stats", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, StatsResponse{
		IndexStats: stats,
		Indexing:   h.indexer.IsIndexing(),
		LastRun:    h.indexer.LastRun(),
	})
}
