// handlers/admin_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/gewnthar/gnss-archiver/models"
	"github.com/gewnthar/gnss-archiver/runlog"
	"github.com/gewnthar/gnss-archiver/services"
)

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, logger *log.Logger, code int, message string) {
	if logger != nil {
		logger.Warn("API error", "status", code, "message", message)
	}
	respondWithJSON(w, code, map[string]string{"error": message})
}

// RunTrigger starts a download run. *services.Runner satisfies it.
type RunTrigger interface {
	Run(ctx context.Context, req services.RunRequest) (*services.RunReport, error)
}

// Pinger reports database health. *database.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunResponse is the JSON summary of a triggered run.
type RunResponse struct {
	RunID           string          `json:"run_id"`
	Accepted        int             `json:"accepted"`
	Rows            []runlog.RunRow `json:"rows"`
	Bulletins       []string        `json:"bulletins,omitempty"`
	SolarReports    []string        `json:"solar_reports,omitempty"`
	SecondaryErrors string          `json:"secondary_errors,omitempty"`
}

// AdminHandler serves health and run-trigger endpoints. Triggered runs never overlap.
type AdminHandler struct {
	runner RunTrigger
	db     Pinger // nil when no database is configured
	logger *log.Logger

	mu sync.Mutex
}

func NewAdminHandler(runner RunTrigger, db Pinger, logger *log.Logger) *AdminHandler {
	return &AdminHandler{runner: runner, db: db, logger: logger}
}

// Health answers GET /api/health.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, h.logger, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			respondWithJSON(w, http.StatusInternalServerError, map[string]string{
				"status": "error", "message": "database connection error",
			})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "gnss-archiver is healthy"})
}

// TriggerRun handles POST /api/admin/run/{orbit|ionex|all}?days=N.
func (h *AdminHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, h.logger, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// Expected path: api/admin/run/{product}
	if len(pathParts) < 4 {
		respondWithError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /api/admin/run/{product}")
		return
	}

	req := services.RunRequest{}
	switch product := strings.ToLower(pathParts[3]); product {
	case "all":
		req.Products = []models.ProductKind{models.ProductOrbit, models.ProductIonosphere}
		req.Bulletins = true
		req.Solar = true
	default:
		kind, err := models.ParseProductKind(product)
		if err != nil {
			respondWithError(w, h.logger, http.StatusBadRequest,
				fmt.Sprintf("Invalid product '%s'. Use 'orbit', 'ionex', or 'all'.", product))
			return
		}
		req.Products = []models.ProductKind{kind}
	}

	days := 1
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondWithError(w, h.logger, http.StatusBadRequest, "Query parameter 'days' must be a non-negative integer")
			return
		}
		days = n
	}
	req.Days = []int{days}

	if !h.mu.TryLock() {
		respondWithError(w, h.logger, http.StatusConflict, "A run is already in progress")
		return
	}
	defer h.mu.Unlock()

	report, err := h.runner.Run(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrConnectivity) {
			status = http.StatusBadGateway
		}
		respondWithError(w, h.logger, status, fmt.Sprintf("Run failed: %v", err))
		return
	}

	resp := RunResponse{
		RunID:        report.Record.ID,
		Accepted:     report.Record.Accepted(),
		Rows:         report.Record.Rows(),
		SolarReports: report.Solar,
	}
	for _, b := range report.Bulletins {
		resp.Bulletins = append(resp.Bulletins, string(b.Class)+" "+b.VersionText)
	}
	if report.Secondary != nil {
		resp.SecondaryErrors = report.Secondary.Error()
	}
	respondWithJSON(w, http.StatusOK, resp)
}
