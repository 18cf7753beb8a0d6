package member

import (
	"context"

	"github.com/google/uuid"
)

// Store abstracts member persistence.
type Store interface {
	Save(ctx context.Context, m *Member) error
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Member, error)
}
