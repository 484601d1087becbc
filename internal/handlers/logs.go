package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/queryguard/queryguard-go/internal/auditlog"
)

// LogsHandler serves the audit log query surface consumed by dashboards.
type LogsHandler struct {
	store      auditlog.Store
	logger     *slog.Logger
	production bool
}

// NewLogsHandler creates a logs handler. production gates the bulk-clear
// operation.
func NewLogsHandler(store auditlog.Store, logger *slog.Logger, production bool) *LogsHandler {
	return &LogsHandler{store: store, logger: logger, production: production}
}

// GetLogs handles GET /api/logs?limit=&session_id=.
// Storage read errors degrade to an empty set rather than failing the page.
func (lh *LogsHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}

	var (
		logs []auditlog.QueryLogEntry
		err  error
	)
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		logs, err = lh.store.LogsBySession(r.Context(), sessionID, limit)
	} else {
		logs, err = lh.store.RecentLogs(r.Context(), limit)
	}
	if err != nil {
		lh.logger.Error("audit log read failed", "err", err)
		logs = nil
	}
	if logs == nil {
		logs = []auditlog.QueryLogEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

// GetAnalytics handles GET /api/analytics.
func (lh *LogsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := lh.store.Analytics(r.Context())
	if err != nil {
		lh.logger.Error("analytics read failed", "err", err)
		analytics = &auditlog.Analytics{}
	}
	writeJSON(w, http.StatusOK, analytics)
}

// ClearLogs handles DELETE /api/logs. Bulk delete, refused in production.
func (lh *LogsHandler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	if lh.production {
		jsonError(w, "Not allowed in production", http.StatusForbidden)
		return
	}
	if err := lh.store.ClearLogs(r.Context()); err != nil {
		lh.logger.Error("clear logs failed", "err", err)
		jsonError(w, "Failed to clear logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "All logs cleared",
	})
}
