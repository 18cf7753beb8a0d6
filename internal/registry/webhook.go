package registry

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fedremit/internal/auditlog"
	"fedremit/internal/organization"
	"fedremit/pkg/platform/sentinel"
)

// WebhookEvent is the inbound registry notification envelope.
type WebhookEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// Webhook event types routed by the processor.
const (
	EventOrganizationCreated = "organization.created"
	EventOrganizationUpdated = "organization.updated"
	EventOrganizationDeleted = "organization.deleted"
	EventMembershipUpdated   = "membership.updated"
)

// WebhookOutcome classifies an ingestion attempt; every attempt is logged
// regardless of outcome.
type WebhookOutcome string

const (
	WebhookProcessed WebhookOutcome = "processed"
	WebhookRejected  WebhookOutcome = "rejected"
	WebhookFailed    WebhookOutcome = "failed"
	WebhookDuplicate WebhookOutcome = "duplicate"
)

// WebhookResult is the ingestion verdict returned to the transport.
type WebhookResult struct {
	Outcome WebhookOutcome
	Message string
}

// VerifySignature checks the HMAC-SHA256 signature over the canonical
// payload: the raw JSON object re-marshalled with the signature field
// removed and keys sorted. Fail closed: an unconfigured secret rejects
// everything.
func VerifySignature(secret string, rawBody []byte, signature string) error {
	if secret == "" {
		return errors.New("webhook secret not configured")
	}
	if signature == "" {
		return errors.New("signature missing")
	}

	canonical, err := CanonicalPayload(rawBody)
	if err != nil {
		return fmt.Errorf("canonicalize payload: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return errors.New("signature mismatch")
	}
	return nil
}

// CanonicalPayload strips the signature field and re-marshals. Go's JSON
// encoder emits map keys sorted, which is the canonical form both sides
// sign.
func CanonicalPayload(rawBody []byte) ([]byte, error) {
	var payload map[string]any
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, err
	}
	delete(payload, "signature")
	return json.Marshal(payload)
}

// WebhookDedup tracks processed event IDs for replay protection.
type WebhookDedup interface {
	SeenWebhook(ctx context.Context, eventID string) (bool, error)
	MarkWebhookSeen(ctx context.Context, eventID string) error
}

// WebhookProcessor verifies and routes inbound registry webhooks.
type WebhookProcessor struct {
	secret  string
	orgs    organization.Store
	sync    *Service
	cache   WebhookDedup
	events  *auditlog.Publisher
	logger  *slog.Logger
	metrics Metrics
}

func NewWebhookProcessor(secret string, orgs organization.Store, sync *Service, cache WebhookDedup,
	events *auditlog.Publisher, logger *slog.Logger, metrics Metrics) *WebhookProcessor {
	return &WebhookProcessor{
		secret:  secret,
		orgs:    orgs,
		sync:    sync,
		cache:   cache,
		events:  events,
		logger:  logger,
		metrics: metrics,
	}
}

// Process verifies the signature, dedups replays, and dispatches by event
// type. Every attempt writes a webhook log row, rejected and failed ones
// included, so the feed can be replayed and audited.
func (p *WebhookProcessor) Process(ctx context.Context, rawBody []byte) WebhookResult {
	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return p.finish(ctx, event, rawBody, WebhookRejected, "malformed payload: "+err.Error())
	}

	if err := VerifySignature(p.secret, rawBody, event.Signature); err != nil {
		return p.finish(ctx, event, rawBody, WebhookRejected, "signature verification failed: "+err.Error())
	}

	if seen, err := p.cache.SeenWebhook(ctx, event.ID); err != nil {
		p.logger.WarnContext(ctx, "webhook dedup check failed", "event_id", event.ID, "error", err)
	} else if seen {
		return p.finish(ctx, event, rawBody, WebhookDuplicate, "event already processed")
	}

	result := p.route(ctx, event, rawBody)
	// Only successful processing claims the event ID; a failed attempt
	// stays retryable by the registry.
	if result.Outcome == WebhookProcessed {
		if err := p.cache.MarkWebhookSeen(ctx, event.ID); err != nil {
			p.logger.WarnContext(ctx, "webhook dedup mark failed", "event_id", event.ID, "error", err)
		}
	}
	return result
}

func (p *WebhookProcessor) route(ctx context.Context, event WebhookEvent, rawBody []byte) WebhookResult {
	switch event.Type {
	case EventOrganizationCreated:
		return p.handleCreated(ctx, event, rawBody)
	case EventOrganizationUpdated:
		return p.handleUpdated(ctx, event, rawBody)
	case EventOrganizationDeleted:
		return p.handleDeleted(ctx, event, rawBody)
	case EventMembershipUpdated:
		return p.handleMembership(ctx, event, rawBody)
	default:
		return p.finish(ctx, event, rawBody, WebhookRejected,
			fmt.Sprintf("unrecognized event type %q", event.Type))
	}
}

func (p *WebhookProcessor) handleCreated(ctx context.Context, event WebhookEvent, rawBody []byte) WebhookResult {
	remote, result := p.decodeRemote(ctx, event, rawBody)
	if remote == nil {
		return result
	}
	if _, err := p.orgs.GetByAffiliateCode(ctx, remote.AffiliateCode); err == nil {
		return p.finish(ctx, event, rawBody, WebhookProcessed, "organization already exists, ignored")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return p.finish(ctx, event, rawBody, WebhookFailed, err.Error())
	}
	if _, err := p.sync.CreateFromRemote(ctx, remote); err != nil {
		return p.finish(ctx, event, rawBody, WebhookFailed, err.Error())
	}
	return p.finish(ctx, event, rawBody, WebhookProcessed, "organization created")
}

func (p *WebhookProcessor) handleUpdated(ctx context.Context, event WebhookEvent, rawBody []byte) WebhookResult {
	remote, result := p.decodeRemote(ctx, event, rawBody)
	if remote == nil {
		return result
	}
	org, err := p.orgs.GetByAffiliateCode(ctx, remote.AffiliateCode)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Sync-or-create: an update for an unknown affiliate materializes it.
		if _, err := p.sync.CreateFromRemote(ctx, remote); err != nil {
			return p.finish(ctx, event, rawBody, WebhookFailed, err.Error())
		}
		return p.finish(ctx, event, rawBody, WebhookProcessed, "organization created from update")
	}
	if err != nil {
		return p.finish(ctx, event, rawBody, WebhookFailed, err.Error())
	}
	if _, err := p.sync.applyRemote(ctx, org, remote); err != nil {
		return p.finish(ctx, event, rawBody, WebhookFailed, err.Error())
	}
	return p.finish(ctx, event, rawBody, WebhookProcessed, "organization synced")
}

func (p *WebhookProcessor) handleDeleted(ctx context.Context, event WebhookEvent, rawBody []byte) WebhookResult {
	remote, result := p.decodeRemote(ctx, event, rawBody)
	if remote == nil {
		return result
	}
	org, err := p.orgs.GetByAffiliateCode(ctx, remote.AffiliateCode)
	if errors.Is(err, sentinel.ErrNotFound) {
		return p.finish(ctx, event, rawBody, WebhookProcessed, "unknown organization, nothing to delete")
	}
	if err != nil {
		return p.finish(ctx, event, rawBody, WebhookFailed, err.Error())
	}
	// Soft delete only: the row and its remittance history stay.
	org.Status = organization.StatusInactive
	if err := p.orgs.Save(ctx, org); err != nil {
		return p.finish(ctx, event, rawBody, WebhookFailed, err.Error())
	}
	return p.finish(ctx, event, rawBody, WebhookProcessed, "organization deactivated")
}

func (p *WebhookProcessor) handleMembership(ctx context.Context, event WebhookEvent, rawBody []byte) WebhookResult {
	var data struct {
		AffiliateCode   string `json:"affiliateCode"`
		MembershipCount int    `json:"membershipCount"`
	}
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return p.finish(ctx, event, rawBody, WebhookRejected, "malformed membership data: "+err.Error())
	}
	org, err := p.orgs.GetByAffiliateCode(ctx, data.AffiliateCode)
	if errors.Is(err, sentinel.ErrNotFound) {
		return p.finish(ctx, event, rawBody, WebhookRejected,
			fmt.Sprintf("unknown affiliate %q", data.AffiliateCode))
	}
	if err != nil {
		return p.finish(ctx, event, rawBody, WebhookFailed, err.Error())
	}
	org.MembershipCount = data.MembershipCount
	if err := p.orgs.Save(ctx, org); err != nil {
		return p.finish(ctx, event, rawBody, WebhookFailed, err.Error())
	}
	return p.finish(ctx, event, rawBody, WebhookProcessed, "membership count updated")
}

func (p *WebhookProcessor) decodeRemote(ctx context.Context, event WebhookEvent, rawBody []byte) (*RemoteOrganization, WebhookResult) {
	var remote RemoteOrganization
	if err := json.Unmarshal(event.Data, &remote); err != nil {
		return nil, p.finish(ctx, event, rawBody, WebhookRejected, "malformed organization data: "+err.Error())
	}
	if remote.AffiliateCode == "" {
		return nil, p.finish(ctx, event, rawBody, WebhookRejected, "affiliate code missing from event data")
	}
	return &remote, WebhookResult{}
}

func (p *WebhookProcessor) finish(ctx context.Context, event WebhookEvent, rawBody []byte, outcome WebhookOutcome, message string) WebhookResult {
	subject := event.ID
	if subject == "" {
		subject = uuid.NewString()
	}
	if p.events != nil {
		p.events.Emit(ctx, auditlog.Event{
			Kind:    auditlog.KindWebhook,
			Subject: subject,
			Action:  event.Type,
			Outcome: string(outcome),
			Detail:  message,
			Payload: rawBody,
		})
	}
	if p.metrics != nil {
		p.metrics.WebhookOutcome(string(outcome))
	}
	if outcome == WebhookRejected || outcome == WebhookFailed {
		p.logger.WarnContext(ctx, "webhook not processed",
			"event_id", event.ID, "type", event.Type, "outcome", outcome, "detail", message)
	}
	return WebhookResult{Outcome: outcome, Message: message}
}
