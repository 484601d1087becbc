package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/queryguard/queryguard-go/internal/auditlog"
	"github.com/queryguard/queryguard-go/internal/classify"
	"github.com/queryguard/queryguard-go/internal/ratelimit"
	"github.com/queryguard/queryguard-go/internal/sanitize"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wideOpenLimiter() *ratelimit.Limiter {
	return ratelimit.New(map[string]ratelimit.Bucket{
		"query":    {MaxRequests: 1000, Window: time.Minute},
		"escalate": {MaxRequests: 1000, Window: time.Minute},
	})
}

type failingProvider struct{ err error }

func (f failingProvider) Name() string { return "failing" }
func (f failingProvider) Classify(context.Context, string) (*classify.Result, error) {
	return nil, f.err
}

func newQueryHandler(store auditlog.Store, provider classify.Provider) *QueryHandler {
	arbiter := classify.NewArbiter(provider, sanitize.RegexSanitizer{}, testLogger())
	return NewQueryHandler(arbiter, store, nil, wideOpenLimiter(), testLogger())
}

func postQuery(t *testing.T, h *QueryHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader([]byte(body)))
	req.RemoteAddr = "192.0.2.1:5000"
	rec := httptest.NewRecorder()
	h.Classify(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) classify.Result {
	t.Helper()
	var r classify.Result
	if err := json.NewDecoder(rec.Body).Decode(&r); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return r
}

func TestClassifyBlockedQuery(t *testing.T) {
	store := auditlog.NewMemory()
	h := newQueryHandler(store, nil)

	rec := postQuery(t, h, `{"query":"How can I hack a password database?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	r := decodeResult(t, rec)
	if r.Decision != classify.DecisionBlocked || r.Confidence != 0.95 {
		t.Errorf("result = %+v, want blocked 0.95", r)
	}

	// Blocked queries are still persisted.
	if n, _ := store.LogCount(context.Background()); n != 1 {
		t.Errorf("log count = %d, want 1", n)
	}
}

func TestClassifyPersistsAndRoundTrips(t *testing.T) {
	store := auditlog.NewMemory()
	h := newQueryHandler(store, nil)

	rec := postQuery(t, h, `{"query":"What are the symptoms of diabetes?","options":{"session_id":"s1","user_id":"u1"}}`)
	r := decodeResult(t, rec)

	logs, err := store.LogsBySession(context.Background(), "s1", 10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("logs = %v, err = %v", logs, err)
	}
	e := logs[0]
	if e.Decision != string(r.Decision) || e.Confidence != r.Confidence {
		t.Errorf("persisted %q/%v, response %q/%v", e.Decision, e.Confidence, r.Decision, r.Confidence)
	}
	if len(e.RuleMatches) != len(r.RuleMatches) {
		t.Fatalf("rule_matches length differs: %v vs %v", e.RuleMatches, r.RuleMatches)
	}
	for i := range e.RuleMatches {
		if e.RuleMatches[i] != r.RuleMatches[i] {
			t.Errorf("rule_matches[%d] = %q, want %q (order preserved)", i, e.RuleMatches[i], r.RuleMatches[i])
		}
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Error("entry missing generated id/timestamp")
	}
	if e.UserID != "u1" {
		t.Errorf("user_id = %q, want u1", e.UserID)
	}
	if e.Query != "What are the symptoms of diabetes?" {
		t.Errorf("stored query = %q, want sanitized text", e.Query)
	}
}

func TestClassifyValidationRejectsBeforeArbiter(t *testing.T) {
	store := auditlog.NewMemory()
	h := newQueryHandler(store, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty query", `{"query":""}`},
		{"whitespace query", `{"query":"   "}`},
		{"over-length query", `{"query":"` + strings.Repeat("a", 1001) + `"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postQuery(t, h, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var resp struct {
				Error   string   `json:"error"`
				Details []string `json:"details"`
			}
			json.NewDecoder(rec.Body).Decode(&resp)
			if resp.Error == "" || len(resp.Details) == 0 {
				t.Errorf("validation response missing error strings: %+v", resp)
			}
		})
	}

	// Rejected requests never reach classification or storage.
	if n, _ := store.LogCount(context.Background()); n != 0 {
		t.Errorf("log count = %d, want 0", n)
	}
}

func TestClassifyMaxLengthQueryAccepted(t *testing.T) {
	h := newQueryHandler(auditlog.NewMemory(), nil)
	rec := postQuery(t, h, `{"query":"`+strings.Repeat("a", 1000)+`"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for exactly 1000 chars", rec.Code)
	}
}

func TestClassifyFailingAIEqualsFallback(t *testing.T) {
	for _, provErr := range []error{classify.ErrUnavailable, classify.ErrInvalidCredential} {
		h := newQueryHandler(auditlog.NewMemory(), failingProvider{err: provErr})
		rec := postQuery(t, h, `{"query":"What are the symptoms of diabetes?"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 despite AI failure (%v)", rec.Code, provErr)
		}
		r := decodeResult(t, rec)
		if r.Decision != classify.DecisionAllowed || r.Confidence != 0.82 {
			t.Errorf("err %v: result = %+v, want keyword-fallback result", provErr, r)
		}
	}
}

func TestClassifyInvalidJSON(t *testing.T) {
	h := newQueryHandler(auditlog.NewMemory(), nil)
	rec := postQuery(t, h, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// brokenStore fails every operation, standing in for a dead database.
type brokenStore struct{}

var errStore = errors.New("store down")

func (brokenStore) SaveLog(context.Context, *auditlog.QueryLogEntry) error { return errStore }
func (brokenStore) RecentLogs(context.Context, int) ([]auditlog.QueryLogEntry, error) {
	return nil, errStore
}
func (brokenStore) LogsBySession(context.Context, string, int) ([]auditlog.QueryLogEntry, error) {
	return nil, errStore
}
func (brokenStore) Analytics(context.Context) (*auditlog.Analytics, error) { return nil, errStore }
func (brokenStore) LogCount(context.Context) (int64, error)                { return 0, errStore }
func (brokenStore) ClearLogs(context.Context) error                        { return errStore }
func (brokenStore) SaveEscalation(context.Context, *auditlog.Escalation) error {
	return errStore
}
func (brokenStore) Ping(context.Context) error { return errStore }
func (brokenStore) Close()                     {}

func TestClassifyStorageFailureDoesNotAlterResponse(t *testing.T) {
	h := newQueryHandler(brokenStore{}, nil)
	rec := postQuery(t, h, `{"query":"What are the symptoms of diabetes?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite storage failure", rec.Code)
	}
	r := decodeResult(t, rec)
	if r.Decision != classify.DecisionAllowed || r.Confidence != 0.82 {
		t.Errorf("result = %+v, want classification unaffected by storage error", r)
	}
}

func TestQueryRequestWireFormat(t *testing.T) {
	body := `{"query":"q","options":{"user_id":"u1","session_id":"s1","privacyNoise":true}}`
	var req queryRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Options.UserID != "u1" || req.Options.SessionID != "s1" {
		t.Errorf("options = %+v, want user u1 session s1", req.Options)
	}
	if !req.Options.PrivacyNoise {
		t.Error("privacyNoise = false, want true")
	}
}
