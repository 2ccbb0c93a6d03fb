package handlers

import (
	"net/http"

	"corpus-manager/internal/middleware"

	"github.com/gorilla/mux"
)

// NewRouter registers every API route. Request metrics are recorded per
// route template; the /metrics endpoint itself is served separately.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/files", h.ListFiles).Methods(http.MethodGet).Name("files")
	api.HandleFunc("/files/{path:.+}", h.GetFile).Methods(http.MethodGet).Name("file")
	api.HandleFunc("/browse", h.Browse).Methods(http.MethodGet)
	api.HandleFunc("/sections", h.ListSections).Methods(http.MethodGet)

	api.HandleFunc("/index", h.TriggerIndex).Methods(http.MethodPost)
	api.HandleFunc("/index/status", h.IndexStatus).Methods(http.MethodGet)

	api.HandleFunc("/consolidate", h.Consolidate).Methods(http.MethodPost)
	api.HandleFunc("/jobs", h.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/download", h.DownloadJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/preview", h.PreviewJob).Methods(http.MethodGet)

	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)

	api.HandleFunc("/tags", h.GetAllTags).Methods(http.MethodGet)
	api.HandleFunc("/tags/file", h.GetFileTags).Methods(http.MethodGet)
	api.HandleFunc("/tags/file", h.AddTagToFile).Methods(http.MethodPost)
	api.HandleFunc("/tags/file", h.RemoveTagFromFile).Methods(http.MethodDelete)
	api.HandleFunc("/tags/batch", h.GetBatchFileTags).Methods(http.MethodPost)
	api.HandleFunc("/tags/{tag}", h.GetFilesByTag).Methods(http.MethodGet)
	api.HandleFunc("/tags/{tag}", h.DeleteTag).Methods(http.MethodDelete)

	return r
}
