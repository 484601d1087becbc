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
	"github.com/queryguard/queryguard-go/internal/sanitize"
	"github.com/queryguard/queryguard-go/internal/ws"
)

// QueryHandler serves the classification endpoint: validate, classify via
// the arbiter, persist the audit entry, return the result.
type QueryHandler struct {
	arbiter *classify.Arbiter
	store   auditlog.Store
	ws      *ws.Manager // may be nil
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(
	arbiter *classify.Arbiter,
	store auditlog.Store,
	wsManager *ws.Manager,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
) *QueryHandler {
	return &QueryHandler{
		arbiter: arbiter,
		store:   store,
		ws:      wsManager,
		limiter: limiter,
		logger:  logger,
	}
}

type queryRequest struct {
	Query   string `json:"query"`
	Options struct {
		UserID       string `json:"user_id"`
		SessionID    string `json:"session_id"`
		PrivacyNoise bool   `json:"privacyNoise"`
	} `json:"options"`
}

// Classify handles POST /api/query.
func (qh *QueryHandler) Classify(w http.ResponseWriter, r *http.Request) {
	if qh.limiter.Check(w, r, "query") {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	// Validation failures are the only user-visible errors on this path.
	if ok, errs := sanitize.Validate(req.Query); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid query",
			"details": errs,
		})
		return
	}

	sanitized, result := qh.arbiter.Classify(r.Context(), req.Query)

	entry := &auditlog.QueryLogEntry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Query:       sanitized,
		Decision:    string(result.Decision),
		Confidence:  result.Confidence,
		RuleMatches: result.RuleMatches,
		UserID:      req.Options.UserID,
		SessionID:   req.Options.SessionID,
		Response:    result.Response,
		Explanation: result.Explanation,
		IPAddress:   r.RemoteAddr,
		UserAgent:   r.UserAgent(),
	}

	// The audit write is a side effect off the response path: its failure
	// never alters the classification already computed.
	if err := qh.store.SaveLog(r.Context(), entry); err != nil {
		qh.logger.Error("audit log write failed", "err", err, "entry_id", entry.ID)
	} else if qh.ws != nil {
		qh.ws.BroadcastEntry(entry)
	}

	writeJSON(w, http.StatusOK, result)
}
