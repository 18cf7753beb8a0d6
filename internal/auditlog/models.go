package auditlog

import (
	"time"

	"github.com/google/uuid"
)

// Kind buckets event-log entries by the subsystem that produced them.
type Kind string

const (
	KindSync         Kind = "sync"
	KindWebhook      Kind = "webhook"
	KindNotification Kind = "notification"
	KindApproval     Kind = "approval"
)

// Event is one append-only log row covering an external interaction or a
// workflow transition. Rows are write-once; forensic reconstruction depends
// on them existing even for failed attempts.
type Event struct {
	ID        uuid.UUID
	Kind      Kind
	Subject   string
	Action    string
	Outcome   string
	Detail    string
	Payload   []byte
	CreatedAt time.Time
}
