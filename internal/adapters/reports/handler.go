package reports

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// ExportScheduler schedules report exports and exposes their status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// Handler provides HTTP access to report exports.
type Handler struct {
	Exports ExportScheduler
}

// NewHandler constructs a report export HTTP handler.
func NewHandler(exports ExportScheduler) *Handler {
	return &Handler{Exports: exports}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		writeError(w, http.StatusInternalServerError, "report exporter not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/v1/reports/exports":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleExportCreate(w, r)
	case strings.HasPrefix(path, "/api/v1/reports/exports/"):
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleExportGet(w, strings.TrimPrefix(path, "/api/v1/reports/exports/"))
	default:
		http.NotFound(w, r)
	}
}

type exportRequest struct {
	Kind        string   `json:"kind"`
	ProjectGUID string   `json:"project_guid"`
	Formats     []string `json:"formats"`
	RequestedBy string   `json:"requested_by"`
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}

	formats := make([]ReportFormat, 0, len(req.Formats))
	for _, format := range req.Formats {
		formats = append(formats, ReportFormat(format))
	}

	record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{
		Kind:        ReportKind(req.Kind),
		ProjectGUID: req.ProjectGUID,
		Formats:     formats,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleExportGet(w http.ResponseWriter, id string) {
	if id == "" {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	record, ok := h.Exports.GetExport(id)
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
