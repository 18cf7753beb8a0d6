package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "fedremit/pkg/platform/tx"
)

// PostgresStore persists event-log rows in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	var payload any
	if len(event.Payload) > 0 {
		payload = event.Payload
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO event_logs (id, kind, subject, action, outcome, detail, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, event.ID, string(event.Kind), event.Subject, event.Action, event.Outcome,
		event.Detail, payload, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByKind(ctx context.Context, kind Kind, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, kind, subject, action, outcome, detail, payload, created_at
		FROM event_logs WHERE kind = $1 ORDER BY created_at DESC LIMIT $2
	`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("list event logs: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var kindCol string
		var payload []byte
		if err := rows.Scan(&e.ID, &kindCol, &e.Subject, &e.Action, &e.Outcome,
			&e.Detail, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event log: %w", err)
		}
		e.Kind = Kind(kindCol)
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}
