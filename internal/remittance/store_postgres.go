package remittance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fedremit/pkg/platform/sentinel"
	txcontext "fedremit/pkg/platform/tx"
)

// PostgresStore persists remittances in PostgreSQL. The composite uniqueness
// key is enforced by the table's UNIQUE constraint; idempotent reruns land on
// ON CONFLICT DO UPDATE.
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

const remitColumns = `id, from_org_id, to_org_id, month, year, total_members,
	remittable_members, per_capita_rate, total_amount, due_date, submitted_at, paid_at,
	approval_status, payment_status, rejection_reason, account_code, created_at, updated_at`

func (s *PostgresStore) Upsert(ctx context.Context, r *Remittance) error {
	now := time.Now()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.ApprovalStatus == "" {
		r.ApprovalStatus = StatusDraft
	}
	if r.PaymentStatus == "" {
		r.PaymentStatus = PaymentPending
	}

	// Workflow columns are deliberately absent from the conflict update:
	// recalculation refreshes figures without touching sign-off state.
	query := `
		INSERT INTO remittances (` + remitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (from_org_id, to_org_id, month, year) DO UPDATE SET
			total_members = EXCLUDED.total_members,
			remittable_members = EXCLUDED.remittable_members,
			per_capita_rate = EXCLUDED.per_capita_rate,
			total_amount = EXCLUDED.total_amount,
			due_date = EXCLUDED.due_date,
			account_code = EXCLUDED.account_code,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + remitColumns

	row := s.execer(ctx).QueryRowContext(ctx, query,
		r.ID, r.FromOrgID, r.ToOrgID, r.Month, r.Year,
		r.TotalMembers, r.RemittableMembers, r.PerCapitaRate, r.TotalAmount,
		r.DueDate, nullTime(r.SubmittedAt), nullTime(r.PaidAt),
		string(r.ApprovalStatus), string(r.PaymentStatus),
		r.RejectionReason, r.AccountCode, now, now,
	)
	saved, err := scanRemittance(row)
	if err != nil {
		return fmt.Errorf("upsert remittance: %w", err)
	}
	*r = *saved
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Remittance, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+remitColumns+` FROM remittances WHERE id = $1`, id)
	return scanRemittance(row)
}

func (s *PostgresStore) GetByPeriod(ctx context.Context, fromOrg uuid.UUID, month, year int) (*Remittance, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+remitColumns+` FROM remittances WHERE from_org_id = $1 AND month = $2 AND year = $3`,
		fromOrg, month, year)
	return scanRemittance(row)
}

func (s *PostgresStore) UpdateApprovalStatus(ctx context.Context, id uuid.UUID, from, to ApprovalStatus, update TransitionUpdate) error {
	query := `
		UPDATE remittances SET
			approval_status = $1,
			submitted_at = COALESCE($2, submitted_at),
			paid_at = COALESCE($3, paid_at),
			rejection_reason = COALESCE($4, rejection_reason),
			payment_status = COALESCE($5, payment_status),
			updated_at = $6
		WHERE id = $7 AND approval_status = $8
	`
	var paymentStatus *string
	if update.PaymentStatus != nil {
		v := string(*update.PaymentStatus)
		paymentStatus = &v
	}
	res, err := s.execer(ctx).ExecContext(ctx, query,
		string(to), nullTime(update.SubmittedAt), nullTime(update.PaidAt),
		update.RejectionReason, paymentStatus, time.Now(), id, string(from))
	if err != nil {
		return fmt.Errorf("update approval status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish missing row from a lost optimistic check.
		if _, err := s.Get(ctx, id); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) MarkOverdue(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE remittances SET payment_status = $1, updated_at = $2
		WHERE payment_status = $3 AND paid_at IS NULL AND due_date < $4
	`, string(PaymentOverdue), time.Now(), string(PaymentPending), cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresStore) ListUnpaid(ctx context.Context) ([]*Remittance, error) {
	return s.list(ctx,
		`SELECT `+remitColumns+` FROM remittances
		 WHERE paid_at IS NULL AND approval_status <> 'rejected' ORDER BY due_date`)
}

func (s *PostgresStore) ListByYear(ctx context.Context, year int) ([]*Remittance, error) {
	return s.list(ctx,
		`SELECT `+remitColumns+` FROM remittances WHERE year = $1 ORDER BY due_date`, year)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Remittance, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list remittances: %w", err)
	}
	defer rows.Close()

	var out []*Remittance
	for rows.Next() {
		r, err := scanRemittance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRemittance(row rowScanner) (*Remittance, error) {
	var r Remittance
	var approvalStatus, paymentStatus string
	var submittedAt, paidAt sql.NullTime
	err := row.Scan(
		&r.ID, &r.FromOrgID, &r.ToOrgID, &r.Month, &r.Year,
		&r.TotalMembers, &r.RemittableMembers, &r.PerCapitaRate, &r.TotalAmount,
		&r.DueDate, &submittedAt, &paidAt,
		&approvalStatus, &paymentStatus, &r.RejectionReason, &r.AccountCode,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan remittance: %w", err)
	}
	r.ApprovalStatus = ApprovalStatus(approvalStatus)
	r.PaymentStatus = PaymentStatus(paymentStatus)
	if submittedAt.Valid {
		t := submittedAt.Time
		r.SubmittedAt = &t
	}
	if paidAt.Valid {
		t := paidAt.Time
		r.PaidAt = &t
	}
	return &r, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
