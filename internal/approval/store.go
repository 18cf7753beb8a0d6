package approval

import (
	"context"

	"github.com/google/uuid"
)

// Store persists the append-only approval trail. There is deliberately no
// update or delete: records are write-once.
type Store interface {
	Append(ctx context.Context, record *Record) error
	ListByRemittance(ctx context.Context, remittanceID uuid.UUID) ([]*Record, error)
}
