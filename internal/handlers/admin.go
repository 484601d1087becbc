package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/queryguard/queryguard-go/internal/auditlog"
	"github.com/queryguard/queryguard-go/internal/classify"
	"github.com/queryguard/queryguard-go/internal/ratelimit"
)

// AdminHandler serves the thin administrative surface: health check and
// human-review escalations.
type AdminHandler struct {
	store   auditlog.Store
	arbiter *classify.Arbiter
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(store auditlog.Store, arbiter *classify.Arbiter, limiter *ratelimit.Limiter, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: store, arbiter: arbiter, limiter: limiter, logger: logger}
}

// Test handles GET /api/test.
func (ah *AdminHandler) Test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Backend is working!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Health handles GET /api/health: store connectivity plus whether an AI
// credential is configured.
func (ah *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := ah.store.Ping(r.Context()); err != nil {
		ah.logger.Error("health check failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	count, err := ah.store.LogCount(r.Context())
	if err != nil {
		ah.logger.Error("log count failed", "err", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"database":     "connected",
		"totalLogs":    count,
		"aiConfigured": ah.arbiter.AIConfigured(),
		"aiProvider":   ah.arbiter.ProviderName(),
	})
}

// Escalate handles POST /api/escalate and records a human-review request.
// No automated action follows.
func (ah *AdminHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	if ah.limiter.Check(w, r, "escalate") {
		return
	}

	var req struct {
		Query  string `json:"query"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" || req.Reason == "" {
		jsonError(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	esc := &auditlog.Escalation{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Query:     req.Query,
		Reason:    req.Reason,
	}
	if err := ah.store.SaveEscalation(r.Context(), esc); err != nil {
		ah.logger.Error("escalation write failed", "err", err)
		jsonError(w, "Failed to process escalation", http.StatusInternalServerError)
		return
	}

	ah.logger.Info("escalation recorded", "id", esc.ID, "reason", esc.Reason)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"id":      esc.ID,
		"message": "Escalation request received",
	})
}
