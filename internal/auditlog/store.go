// Package auditlog persists classification events as an append-only log
// queryable by recency and session, with aggregate analytics for the
// dashboard.
package auditlog

import (
	"context"
	"time"
)

// QueryLogEntry is one persisted classification event: the normalized
// classification output plus provenance. Entries are created once and never
// updated; deletion happens only through the bulk ClearLogs operation.
type QueryLogEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Query       string    `json:"query"` // sanitized text, post-sanitizer pre-classification
	Decision    string    `json:"decision"`
	Confidence  float64   `json:"classifier_prob"`
	RuleMatches []string  `json:"rule_matches"`
	UserID      string    `json:"user_id,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	Response    string    `json:"llm_response,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
}

// Escalation records a human-review request. No automated action follows.
type Escalation struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Reason    string    `json:"reason"`
}

// Analytics is the aggregate summary consumed by the dashboard.
type Analytics struct {
	Total         int64   `json:"total"`
	Allowed       int64   `json:"allowed"`
	Blocked       int64   `json:"blocked"`
	AvgConfidence float64 `json:"avgConfidence"`
}

// Store is the audit log surface. The server-side Postgres store and the
// in-process memory store are two independent instances of this interface;
// they are never reconciled.
type Store interface {
	SaveLog(ctx context.Context, entry *QueryLogEntry) error
	RecentLogs(ctx context.Context, limit int) ([]QueryLogEntry, error)
	LogsBySession(ctx context.Context, sessionID string, limit int) ([]QueryLogEntry, error)
	Analytics(ctx context.Context) (*Analytics, error)
	LogCount(ctx context.Context) (int64, error)
	ClearLogs(ctx context.Context) error
	SaveEscalation(ctx context.Context, esc *Escalation) error
	Ping(ctx context.Context) error
	Close()
}
