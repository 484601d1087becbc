package auditlog

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It backs deployments without a database
// and mirrors the client-held audit copy kept by the web UI. Entries are
// self-contained units; the mutex guarantees no partial-write visibility
// under concurrent requests.
type Memory struct {
	mu          sync.RWMutex
	logs        []QueryLogEntry
	escalations []Escalation
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// SaveLog appends a copy of the entry.
func (m *Memory) SaveLog(_ context.Context, entry *QueryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := *entry
	e.RuleMatches = append([]string(nil), entry.RuleMatches...)
	m.logs = append(m.logs, e)
	return nil
}

// RecentLogs returns up to limit entries, most recent first.
func (m *Memory) RecentLogs(_ context.Context, limit int) ([]QueryLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(limit, func(QueryLogEntry) bool { return true }), nil
}

// LogsBySession returns up to limit entries for one session, most recent first.
func (m *Memory) LogsBySession(_ context.Context, sessionID string, limit int) ([]QueryLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(limit, func(e QueryLogEntry) bool { return e.SessionID == sessionID }), nil
}

// collect walks the log backwards (newest first) under the read lock.
func (m *Memory) collect(limit int, keep func(QueryLogEntry) bool) []QueryLogEntry {
	out := make([]QueryLogEntry, 0, limit)
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(m.logs[i]) {
			out = append(out, m.logs[i])
		}
	}
	return out
}

// Analytics computes the aggregate summary over all entries.
func (m *Memory) Analytics(_ context.Context) (*Analytics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a := &Analytics{Total: int64(len(m.logs))}
	var sum float64
	for _, e := range m.logs {
		if e.Decision == "blocked" {
			a.Blocked++
		} else {
			a.Allowed++
		}
		sum += e.Confidence
	}
	if a.Total > 0 {
		a.AvgConfidence = sum / float64(a.Total)
	}
	return a, nil
}

// LogCount returns the number of stored entries.
func (m *Memory) LogCount(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.logs)), nil
}

// ClearLogs removes every entry.
func (m *Memory) ClearLogs(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = nil
	return nil
}

// SaveEscalation appends a copy of the escalation.
func (m *Memory) SaveEscalation(_ context.Context, esc *Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalations = append(m.escalations, *esc)
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() {}
