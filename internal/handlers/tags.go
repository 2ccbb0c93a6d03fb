package handlers

import (
	"net/http"
	"strings"

	"corpus-manager/internal/database"

	"github.com/gorilla/mux"
)

// TagRequest attaches or detaches one tag on a file
type TagRequest struct {
	Path string `json:"path"`
	Tag  string `json:"tag"`
}

// BatchTagsRequest represents a request to get tags for multiple files
type BatchTagsRequest struct {
	Paths []string `json:"paths"`
}

// maxBatchPaths caps one batch tag lookup.
const maxBatchPaths = 100

// GetAllTags returns all tags with their file counts
func (h *Handlers) GetAllTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.GetAllTags(r.Context())
	if err != nil {
		writeError(w, "Get tags", err)
		return
	}
	if tags == nil {
		tags = []database.Tag{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, tags)
}

// GetFileTags returns tags for a specific file
func (h *Handlers) GetFileTags(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "Path is required", http.StatusBadRequest)
		return
	}

	tags, err := h.db.GetFileTags(r.Context(), path)
	if err != nil {
		writeError(w, "Get tags", err)
		return
	}
	if tags == nil {
		tags = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, tags)
}

// GetBatchFileTags returns tags for multiple files at once. Paths without
// tags are omitted from the result.
func (h *Handlers) GetBatchFileTags(w http.ResponseWriter, r *http.Request) {
	var req BatchTagsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Paths) == 0 {
		writeJSONError(w, "Paths array is required", http.StatusBadRequest)
		return
	}
	if len(req.Paths) > maxBatchPaths {
		req.Paths = req.Paths[:maxBatchPaths]
	}

	result := make(map[string][]string)
	for _, path := range req.Paths {
		if path == "" {
			continue
		}
		tags, err := h.db.GetFileTags(r.Context(), path)
		if err != nil {
			writeError(w, "Get tags", err)
			return
		}
		if len(tags) > 0 {
			result[path] = tags
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

func decodeTagRequest(w http.ResponseWriter, r *http.Request) (TagRequest, bool) {
	var req TagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	req.Tag = strings.TrimSpace(req.Tag)
	if req.Path == "" || req.Tag == "" {
		writeJSONError(w, "Path and tag are required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// AddTagToFile adds a tag to an indexed file
func (h *Handlers) AddTagToFile(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTagRequest(w, r)
	if !ok {
		return
	}

	if err := h.db.AddTagToFile(r.Context(), req.Path, req.Tag); err != nil {
		writeError(w, "Add tag", err)
		return
	}

	writeJSONStatus(w, "ok")
}

// RemoveTagFromFile removes a tag from a file
func (h *Handlers) RemoveTagFromFile(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTagRequest(w, r)
	if !ok {
		return
	}

	if err := h.db.RemoveTagFromFile(r.Context(), req.Path, req.Tag); err != nil {
		writeError(w, "Remove tag", err)
		return
	}

	writeJSONStatus(w, "ok")
}

// GetFilesByTag returns files with a specific tag
func (h *Handlers) GetFilesByTag(w http.ResponseWriter, r *http.Request) {
	tagName := mux.Vars(r)["tag"]
	if tagName == "" {
		writeJSONError(w, "Tag name is required", http.StatusBadRequest)
		return
	}

	files, err := h.db.GetFilesByTag(r.Context(), tagName)
	if err != nil {
		writeError(w, "Get files", err)
		return
	}
	if files == nil {
		files = []database.FileRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, files)
}

// DeleteTag removes a tag entirely
func (h *Handlers) DeleteTag(w http.ResponseWriter, r *http.Request) {
	tagName := mux.Vars(r)["tag"]
	if tagName == "" {
		writeJSONError(w, "Tag name is required", http.StatusBadRequest)
		return
	}

	if err := h.db.DeleteTag(r.Context(), tagName); err != nil {
		writeError(w, "Delete tag", err)
		return
	}

	writeJSONStatus(w, "ok")
}
