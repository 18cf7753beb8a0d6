package auditlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// StreamSink is the downstream event stream (Kafka in production).
type StreamSink interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Worker drains the publisher inbox into the stream sink. It keeps broker
// I/O off the request path; the durable store row was already written by the
// publisher.
type Worker struct {
	inbox  <-chan Event
	sink   StreamSink
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, sink StreamSink, logger *slog.Logger) *Worker {
	return &Worker{inbox: inbox, sink: sink, logger: logger}
}

// Run consumes until ctx is cancelled. Sink failures are logged and the
// event dropped; the store row remains the source of truth.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if w.sink == nil {
				continue
			}
			payload, err := json.Marshal(streamPayload{
				ID:        event.ID.String(),
				Kind:      string(event.Kind),
				Subject:   event.Subject,
				Action:    event.Action,
				Outcome:   event.Outcome,
				Detail:    event.Detail,
				CreatedAt: event.CreatedAt.Format(time.RFC3339Nano),
			})
			if err != nil {
				w.logger.Error("marshal stream event failed", "error", err)
				continue
			}
			if err := w.sink.Publish(ctx, event.Subject, payload); err != nil {
				w.logger.Error("publish stream event failed",
					"kind", event.Kind, "subject", event.Subject, "error", err)
			}
		}
	}
}

type streamPayload struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Subject   string `json:"subject"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}
