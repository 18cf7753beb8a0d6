package approval

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "fedremit/pkg/platform/tx"
)

// PostgresStore persists approval records in PostgreSQL.
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

func (s *PostgresStore) Append(ctx context.Context, record *Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO approval_records (id, remittance_id, level, action, actor_id, comment, rejection_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.ID, record.RemittanceID, record.Level, string(record.Action),
		record.ActorID, record.Comment, record.RejectionReason, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("append approval record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRemittance(ctx context.Context, remittanceID uuid.UUID) ([]*Record, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, remittance_id, level, action, actor_id, comment, rejection_reason, created_at
		FROM approval_records WHERE remittance_id = $1 ORDER BY created_at
	`, remittanceID)
	if err != nil {
		return nil, fmt.Errorf("list approval records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var r Record
		var action string
		if err := rows.Scan(&r.ID, &r.RemittanceID, &r.Level, &action,
			&r.ActorID, &r.Comment, &r.RejectionReason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval record: %w", err)
		}
		r.Action = Action(action)
		out = append(out, &r)
	}
	return out, rows.Err()
}
