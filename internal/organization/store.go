package organization

import (
	"context"

	"github.com/google/uuid"
)

// Store abstracts organization persistence so services can run against the
// in-memory implementation in tests and PostgreSQL in production.
type Store interface {
	Save(ctx context.Context, org *Organization) error
	Get(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetByAffiliateCode(ctx context.Context, code string) (*Organization, error)
	ListActive(ctx context.Context) ([]*Organization, error)
	ListWithAffiliateCode(ctx context.Context) ([]*Organization, error)
}
