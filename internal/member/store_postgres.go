package member

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore persists members in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, m *Member) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO members (id, org_id, status, last_dues_paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			org_id = EXCLUDED.org_id,
			status = EXCLUDED.status,
			last_dues_paid_at = EXCLUDED.last_dues_paid_at
	`
	var paidAt any
	if m.LastDuesPaidAt != nil {
		paidAt = *m.LastDuesPaidAt
	}
	_, err := s.db.ExecContext(ctx, query, m.ID, m.OrgID, string(m.Status), paidAt, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("save member: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, status, last_dues_paid_at, created_at FROM members WHERE org_id = $1`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*Member
	for rows.Next() {
		var m Member
		var status string
		var paidAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.OrgID, &status, &paidAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Status = Status(status)
		if paidAt.Valid {
			t := paidAt.Time
			m.LastDuesPaidAt = &t
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
