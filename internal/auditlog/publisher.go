package auditlog

import (
	"context"
	"log/slog"
	"time"
)

// Publisher captures structured event-log entries. The store write is
// synchronous so a row exists even when the surrounding operation fails;
// the optional stream sink is fed through a buffered inbox consumed by the
// Worker so a slow broker never stalls domain code.
type Publisher struct {
	store  Store
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:  store,
		inbox:  make(chan Event, 256),
		logger: logger,
	}
}

// Emit persists the event and queues it for the stream sink. Domain callers
// treat audit emission as best-effort: failures are logged, not propagated.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "append event log failed",
			"kind", event.Kind, "subject", event.Subject, "error", err)
		return
	}
	select {
	case p.inbox <- event:
	default:
		// Inbox full: the durable row exists, only the stream copy is dropped.
		p.logger.WarnContext(ctx, "event stream inbox full, dropping stream copy",
			"kind", event.Kind, "subject", event.Subject)
	}
}

// Inbox exposes the stream channel for the Worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
