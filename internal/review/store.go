package review

import (
	"context"

	"github.com/google/uuid"
)

// Store persists review-queue items.
type Store interface {
	Add(ctx context.Context, item *Item) error
	ListPending(ctx context.Context) ([]*Item, error)
	Resolve(ctx context.Context, id uuid.UUID, status Status, resolvedBy uuid.UUID) error
}
