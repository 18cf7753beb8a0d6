package organization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fedremit/pkg/platform/sentinel"
	txcontext "fedremit/pkg/platform/tx"
)

// PostgresStore persists organizations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const orgColumns = `id, name, parent_id, path, status, affiliate_code, legal_name,
	organization_type, province, city, postal_code, contact_email, contact_phone,
	membership_count, per_capita_rate, remittance_day, approval_levels, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, org *Organization) error {
	now := time.Now()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now

	query := `
		INSERT INTO organizations (` + orgColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			parent_id = EXCLUDED.parent_id,
			path = EXCLUDED.path,
			status = EXCLUDED.status,
			affiliate_code = EXCLUDED.affiliate_code,
			legal_name = EXCLUDED.legal_name,
			organization_type = EXCLUDED.organization_type,
			province = EXCLUDED.province,
			city = EXCLUDED.city,
			postal_code = EXCLUDED.postal_code,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			membership_count = EXCLUDED.membership_count,
			per_capita_rate = EXCLUDED.per_capita_rate,
			remittance_day = EXCLUDED.remittance_day,
			approval_levels = EXCLUDED.approval_levels,
			updated_at = EXCLUDED.updated_at
	`
	var parentID any
	if org.ParentID != nil {
		parentID = *org.ParentID
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		org.ID, org.Name, parentID, org.Path, string(org.Status), org.AffiliateCode,
		org.LegalName, org.OrganizationType, org.Province, org.City, org.PostalCode,
		org.ContactEmail, org.ContactPhone, org.MembershipCount,
		org.Config.PerCapitaRate, org.Config.RemittanceDay,
		strings.Join(org.Config.ApprovalLevels, ","),
		org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)
	return scanOrganization(row)
}

func (s *PostgresStore) GetByAffiliateCode(ctx context.Context, code string) (*Organization, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE affiliate_code = $1 AND affiliate_code <> ''`, code)
	return scanOrganization(row)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*Organization, error) {
	return s.list(ctx, `SELECT `+orgColumns+` FROM organizations WHERE status = 'active' ORDER BY name`)
}

func (s *PostgresStore) ListWithAffiliateCode(ctx context.Context) ([]*Organization, error) {
	return s.list(ctx, `SELECT `+orgColumns+` FROM organizations WHERE affiliate_code <> '' ORDER BY name`)
}

func (s *PostgresStore) list(ctx context.Context, query string) ([]*Organization, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*Organization
	for rows.Next() {
		org, err := scanOrganizationRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row *sql.Row) (*Organization, error) {
	org, err := scanOrganizationRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return org, err
}

func scanOrganizationRow(row rowScanner) (*Organization, error) {
	var org Organization
	var parentID sql.NullString
	var status, levels string
	err := row.Scan(
		&org.ID, &org.Name, &parentID, &org.Path, &status, &org.AffiliateCode,
		&org.LegalName, &org.OrganizationType, &org.Province, &org.City, &org.PostalCode,
		&org.ContactEmail, &org.ContactPhone, &org.MembershipCount,
		&org.Config.PerCapitaRate, &org.Config.RemittanceDay, &levels,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	org.Status = Status(status)
	if parentID.Valid {
		pid, err := uuid.Parse(parentID.String)
		if err != nil {
			return nil, fmt.Errorf("parse parent id: %w", err)
		}
		org.ParentID = &pid
	}
	if levels != "" {
		org.Config.ApprovalLevels = strings.Split(levels, ",")
	}
	return &org, nil
}
