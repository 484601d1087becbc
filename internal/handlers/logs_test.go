package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/queryguard/queryguard-go/internal/auditlog"
)

func seed(t *testing.T, store auditlog.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		decision := "allowed"
		if i%3 == 0 {
			decision = "blocked"
		}
		err := store.SaveLog(context.Background(), &auditlog.QueryLogEntry{
			ID:          "id-" + string(rune('a'+i)),
			Timestamp:   time.Now().UTC(),
			Query:       "q",
			Decision:    decision,
			Confidence:  0.8,
			RuleMatches: []string{"general_query"},
			SessionID:   "s1",
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestGetLogsDefaultLimit(t *testing.T) {
	store := auditlog.NewMemory()
	seed(t, store, 25)
	lh := NewLogsHandler(store, testLogger(), false)

	rec := httptest.NewRecorder()
	lh.GetLogs(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))

	var resp struct {
		Logs []auditlog.QueryLogEntry `json:"logs"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Logs) != 20 {
		t.Errorf("got %d logs, want default limit 20", len(resp.Logs))
	}
}

func TestGetLogsLimitCappedAt100(t *testing.T) {
	store := auditlog.NewMemory()
	seed(t, store, 5)
	lh := NewLogsHandler(store, testLogger(), false)

	rec := httptest.NewRecorder()
	lh.GetLogs(rec, httptest.NewRequest(http.MethodGet, "/api/logs?limit=5000", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestGetLogsSessionFilter(t *testing.T) {
	store := auditlog.NewMemory()
	seed(t, store, 3)
	store.SaveLog(context.Background(), &auditlog.QueryLogEntry{
		ID: "other", Timestamp: time.Now().UTC(), Query: "q", Decision: "allowed",
		Confidence: 0.7, RuleMatches: []string{"general_query"}, SessionID: "s2",
	})
	lh := NewLogsHandler(store, testLogger(), false)

	rec := httptest.NewRecorder()
	lh.GetLogs(rec, httptest.NewRequest(http.MethodGet, "/api/logs?session_id=s2", nil))

	var resp struct {
		Logs []auditlog.QueryLogEntry `json:"logs"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Logs) != 1 || resp.Logs[0].ID != "other" {
		t.Errorf("session filter returned %+v", resp.Logs)
	}
}

func TestGetLogsStoreErrorYieldsEmptySet(t *testing.T) {
	lh := NewLogsHandler(brokenStore{}, testLogger(), false)

	rec := httptest.NewRecorder()
	lh.GetLogs(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with empty set", rec.Code)
	}
	var resp struct {
		Logs []auditlog.QueryLogEntry `json:"logs"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Logs == nil || len(resp.Logs) != 0 {
		t.Errorf("logs = %v, want empty slice", resp.Logs)
	}
}

func TestGetAnalytics(t *testing.T) {
	store := auditlog.NewMemory()
	seed(t, store, 6) // 2 blocked (i=0,3), 4 allowed
	lh := NewLogsHandler(store, testLogger(), false)

	rec := httptest.NewRecorder()
	lh.GetAnalytics(rec, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))

	var a auditlog.Analytics
	json.NewDecoder(rec.Body).Decode(&a)
	if a.Total != 6 || a.Blocked != 2 || a.Allowed != 4 {
		t.Errorf("analytics = %+v", a)
	}
}

func TestClearLogsGatedInProduction(t *testing.T) {
	store := auditlog.NewMemory()
	seed(t, store, 2)
	lh := NewLogsHandler(store, testLogger(), true)

	rec := httptest.NewRecorder()
	lh.ClearLogs(rec, httptest.NewRequest(http.MethodDelete, "/api/logs", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 in production", rec.Code)
	}
	if n, _ := store.LogCount(context.Background()); n != 2 {
		t.Errorf("logs deleted despite production gate")
	}
}

func TestClearLogsInDevelopment(t *testing.T) {
	store := auditlog.NewMemory()
	seed(t, store, 2)
	lh := NewLogsHandler(store, testLogger(), false)

	rec := httptest.NewRecorder()
	lh.ClearLogs(rec, httptest.NewRequest(http.MethodDelete, "/api/logs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if n, _ := store.LogCount(context.Background()); n != 0 {
		t.Errorf("log count = %d, want 0 after clear", n)
	}
}
