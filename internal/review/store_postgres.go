package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fedremit/pkg/platform/sentinel"
)

// PostgresStore persists review items in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if item.Status == "" {
		item.Status = StatusPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_items (id, org_id, field, local_value, remote_value, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.OrgID, item.Field, item.LocalValue, item.RemoteValue,
		string(item.Status), item.CreatedAt)
	if err != nil {
		return fmt.Errorf("add review item: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, field, local_value, remote_value, status, created_at, resolved_at, resolved_by
		FROM review_items WHERE status = 'pending' ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending review items: %w", err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		var item Item
		var status string
		var resolvedAt sql.NullTime
		var resolvedBy sql.NullString
		if err := rows.Scan(&item.ID, &item.OrgID, &item.Field, &item.LocalValue,
			&item.RemoteValue, &status, &item.CreatedAt, &resolvedAt, &resolvedBy); err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		item.Status = Status(status)
		if resolvedAt.Valid {
			t := resolvedAt.Time
			item.ResolvedAt = &t
		}
		if resolvedBy.Valid {
			id, err := uuid.Parse(resolvedBy.String)
			if err != nil {
				return nil, fmt.Errorf("parse resolved_by: %w", err)
			}
			item.ResolvedBy = &id
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Resolve(ctx context.Context, id uuid.UUID, status Status, resolvedBy uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE review_items SET status = $1, resolved_at = $2, resolved_by = $3
		WHERE id = $4 AND status = 'pending'
	`, string(status), time.Now(), resolvedBy, id)
	if err != nil {
		return fmt.Errorf("resolve review item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM review_items WHERE id = $1)`, id).Scan(&exists)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check review item: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}
