package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and ensures all required tables exist.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			parent_id UUID,
			path TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			affiliate_code TEXT NOT NULL DEFAULT '',
			contact_email TEXT NOT NULL DEFAULT '',
			contact_phone TEXT NOT NULL DEFAULT '',
			legal_name TEXT NOT NULL DEFAULT '',
			organization_type TEXT NOT NULL DEFAULT '',
			province TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			postal_code TEXT NOT NULL DEFAULT '',
			membership_count INTEGER NOT NULL DEFAULT 0,
			per_capita_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			remittance_day INTEGER NOT NULL DEFAULT 15,
			approval_levels TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_organizations_parent ON organizations(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_organizations_affiliate ON organizations(affiliate_code)`,

		`CREATE TABLE IF NOT EXISTS members (
			id UUID PRIMARY KEY,
			org_id UUID NOT NULL,
			status TEXT NOT NULL,
			last_dues_paid_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_members_org ON members(org_id)`,

		`CREATE TABLE IF NOT EXISTS remittances (
			id UUID PRIMARY KEY,
			from_org_id UUID NOT NULL,
			to_org_id UUID NOT NULL,
			month INTEGER NOT NULL,
			year INTEGER NOT NULL,
			total_members INTEGER NOT NULL,
			remittable_members INTEGER NOT NULL,
			per_capita_rate DOUBLE PRECISION NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL,
			due_date TIMESTAMPTZ NOT NULL,
			submitted_at TIMESTAMPTZ,
			paid_at TIMESTAMPTZ,
			approval_status TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			rejection_reason TEXT NOT NULL DEFAULT '',
			account_code TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (from_org_id, to_org_id, month, year)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_remittances_status ON remittances(approval_status)`,
		`CREATE INDEX IF NOT EXISTS idx_remittances_period ON remittances(year, month)`,

		`CREATE TABLE IF NOT EXISTS approval_records (
			id UUID PRIMARY KEY,
			remittance_id UUID NOT NULL,
			level TEXT NOT NULL,
			action TEXT NOT NULL,
			actor_id UUID NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			rejection_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_approval_records_remittance ON approval_records(remittance_id)`,

		`CREATE TABLE IF NOT EXISTS event_logs (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			subject TEXT NOT NULL,
			action TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			payload JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_logs_kind ON event_logs(kind, created_at)`,

		`CREATE TABLE IF NOT EXISTS review_items (
			id UUID PRIMARY KEY,
			org_id UUID NOT NULL,
			field TEXT NOT NULL,
			local_value TEXT NOT NULL,
			remote_value TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			resolved_at TIMESTAMPTZ,
			resolved_by UUID
		)`,
		`CREATE INDEX IF NOT EXISTS idx_review_items_status ON review_items(status)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}
