package auditlog

import "context"

// Store persists event-log rows. Append-only: no update or delete exists.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByKind(ctx context.Context, kind Kind, limit int) ([]Event, error)
}
