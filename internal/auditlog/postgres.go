package auditlog

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres is the server-side Store backed by a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect creates a Postgres store, connects, and runs migrations.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	p := &Postgres{pool: pool, logger: logger}
	if err := p.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	sql, err := migrations.ReadFile("migrations/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := p.pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	p.logger.Info("audit log migrated")
	return nil
}

// SaveLog inserts one classification event.
func (p *Postgres) SaveLog(ctx context.Context, e *QueryLogEntry) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO query_logs (
		    id, timestamp, query, decision, classifier_prob, rule_matches,
		    user_id, session_id, llm_response, explanation, ip_address, user_agent
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Timestamp, e.Query, e.Decision, e.Confidence, e.RuleMatches,
		nullable(e.UserID), nullable(e.SessionID), nullable(e.Response),
		nullable(e.Explanation), nullable(e.IPAddress), nullable(e.UserAgent),
	)
	return err
}

const logColumns = `id, timestamp, query, decision, classifier_prob, rule_matches,
	user_id, session_id, llm_response, explanation, ip_address, user_agent`

// RecentLogs returns up to limit entries, most recent first.
func (p *Postgres) RecentLogs(ctx context.Context, limit int) ([]QueryLogEntry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+logColumns+` FROM query_logs ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogs(rows)
}

// LogsBySession returns up to limit entries for one session, most recent first.
func (p *Postgres) LogsBySession(ctx context.Context, sessionID string, limit int) ([]QueryLogEntry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+logColumns+` FROM query_logs WHERE session_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogs(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanLogs(rows pgxRows) ([]QueryLogEntry, error) {
	var logs []QueryLogEntry
	for rows.Next() {
		var e QueryLogEntry
		var userID, sessionID, response, explanation, ip, ua *string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Query, &e.Decision, &e.Confidence,
			&e.RuleMatches, &userID, &sessionID, &response, &explanation, &ip, &ua); err != nil {
			return nil, err
		}
		e.UserID = deref(userID)
		e.SessionID = deref(sessionID)
		e.Response = deref(response)
		e.Explanation = deref(explanation)
		e.IPAddress = deref(ip)
		e.UserAgent = deref(ua)
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

// Analytics computes the aggregate summary over all entries.
func (p *Postgres) Analytics(ctx context.Context) (*Analytics, error) {
	var a Analytics
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE decision = 'allowed'),
		        COUNT(*) FILTER (WHERE decision = 'blocked'),
		        COALESCE(AVG(classifier_prob), 0)
		 FROM query_logs`,
	).Scan(&a.Total, &a.Allowed, &a.Blocked, &a.AvgConfidence)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// LogCount returns the number of stored entries.
func (p *Postgres) LogCount(ctx context.Context) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM query_logs`).Scan(&n)
	return n, err
}

// ClearLogs deletes every entry. Gated to non-production by the handler.
func (p *Postgres) ClearLogs(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM query_logs`)
	return err
}

// SaveEscalation inserts one human-review request.
func (p *Postgres) SaveEscalation(ctx context.Context, esc *Escalation) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO escalations (id, timestamp, query, reason) VALUES ($1, $2, $3, $4)`,
		esc.ID, esc.Timestamp, esc.Query, esc.Reason)
	return err
}

// Ping checks the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
