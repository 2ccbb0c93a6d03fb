package handlers

import (
	"net/http"

	"corpus-manager/internal/database"
	"corpus-manager/internal/doctypes"
	"corpus-manager/internal/search"

	"github.com/gorilla/mux"
)

// FileDetail is one record plus its tags and document kind.
type FileDetail struct {
	database.FileRecord
	Kind doctypes.Kind `json:"kind"`
}

// ListFiles answers a filtered, sorted and paginated file query.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	params, err := search.ParseParams(r.URL.Query())
	if err != nil {
		writeError(w, "Query", err)
		return
	}

	page, err := h.search.Query(r.Context(), params)
	if err != nil {
		writeError(w, "Query", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, struct {
		*search.Page
		HasMore bool `json:"hasMore"`
	}{page, page.HasMore()})
}

// GetFile returns one record by corpus-relative path, deleted ones included.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	filePath := mux.Vars(r)["path"]
	if filePath == "" {
		writeJSONError(w, "Path is required", http.StatusBadRequest)
		return
	}

	rec, err := h.db.GetFile(r.Context(), filePath)
	if err != nil {
		writeError(w, "Get file", err)
		return
	}

	tags, err := h.db.GetFileTags(r.Context(), filePath)
	if err != nil {
		writeError(w, "Get file tags", err)
		return
	}
	rec.Tags = tags

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, FileDetail{FileRecord: *rec, Kind: doctypes.KindFor(rec.Extension)})
}

// Browse lists one directory of the index: child directories with file
// counts, the files directly inside, and a breadcrumb.
func (h *Handlers) Browse(w http.ResponseWriter, r *http.Request) {
	listing, err := h.db.ListDirectory(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, "Browse", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, listing)
}

// ListSections returns the distinct top-level sections.
func (h *Handlers) ListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.db.ListSections(r.Context())
	if err != nil {
		writeError(w, "List sections", err)
		return
	}
	if sections == nil {
		sections = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sections)
}
