package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/keywarden/keywarden/internal/middleware"
	"github.com/keywarden/keywarden/internal/models"
)

// LogService defines the activity log operations required by the HTTP
// handlers.
type LogService interface {
	Record(ctx context.Context, userID, action, itemID, detail string) error
	List(ctx context.Context, userID string) ([]models.ActivityLog, error)
	Summary(ctx context.Context, userID string) (models.LogSummary, error)
}

// LogHandler handles activity log requests.
type LogHandler struct {
	logs LogService
	log  *zap.Logger
}

// NewLogHandler constructs a LogHandler.
func NewLogHandler(logs LogService, log *zap.Logger) *LogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogHandler{logs: logs, log: log}
}

// Record handles POST /logs. Clients report local transitions such as
// vault locks here; entries never carry secrets.
func (h *LogHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Action) == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	if err := h.logs.Record(r.Context(), userID, req.Action, req.ItemID, req.Detail); err != nil {
		h.log.Error("record log failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// List handles GET /logs.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.logs.List(r.Context(), userID)
	if err != nil {
		h.log.Error("list logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []models.ActivityLog{}
	}
	writeData(w, http.StatusOK, entries)
}

// Summary handles GET /logs/summary.
func (h *LogHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.logs.Summary(r.Context(), userID)
	if err != nil {
		h.log.Error("log summary failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeData(w, http.StatusOK, summary)
}
