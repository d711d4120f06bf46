// handlers/run_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gewnthar/gnss-archiver/models"
	"github.com/gewnthar/gnss-archiver/runlog"
)

// RunLister returns stored run rows for a target date.
type RunLister interface {
	ListRunRowsByDate(ctx context.Context, targetDate string) ([]runlog.RunRow, error)
}

// LogDirLister reads rows from the daily CSV logs when no database is configured.
type LogDirLister struct {
	Dir string
}

func (l LogDirLister) ListRunRowsByDate(_ context.Context, targetDate string) ([]runlog.RunRow, error) {
	return runlog.ListByTargetDate(l.Dir, targetDate)
}

// RunHandler serves GET /api/runs?date=YYYY-MM-DD.
type RunHandler struct {
	lister RunLister
	logger *log.Logger
}

func NewRunHandler(lister RunLister, logger *log.Logger) *RunHandler {
	return &RunHandler{lister: lister, logger: logger}
}

func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, h.logger, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		respondWithError(w, h.logger, http.StatusBadRequest, "Missing 'date' query parameter")
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, "Invalid 'date' format. Use YYYY-MM-DD.")
		return
	}

	rows, err := h.lister.ListRunRowsByDate(r.Context(), date)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, "Failed to list runs: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, rows)
}

// VersionLister returns the latest committed version of every product.
type VersionLister interface {
	ListProductVersions(ctx context.Context) ([]models.ProductVersion, error)
}

// VersionHandler serves GET /api/versions.
type VersionHandler struct {
	lister VersionLister // nil when no database is configured
	logger *log.Logger
}

func NewVersionHandler(lister VersionLister, logger *log.Logger) *VersionHandler {
	return &VersionHandler{lister: lister, logger: logger}
}

func (h *VersionHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, h.logger, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}
	if h.lister == nil {
		respondWithError(w, h.logger, http.StatusServiceUnavailable, "Product versions need a configured database")
		return
	}

	versions, err := h.lister.ListProductVersions(r.Context())
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, "Failed to list product versions: "+err.Error())
		return
	}
	if versions == nil {
		versions = []models.ProductVersion{}
	}
	respondWithJSON(w, http.StatusOK, versions)
}

// NewRouter registers every API route.
func NewRouter(admin *AdminHandler, runs *RunHandler, versions *VersionHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", admin.Health)
	mux.HandleFunc("/api/admin/run/", admin.TriggerRun) // Path ends with / to catch sub-paths
	mux.HandleFunc("/api/runs", runs.ListRuns)
	mux.HandleFunc("/api/versions", versions.ListVersions)
	return mux
}
