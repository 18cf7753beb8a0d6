package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "fedremit/internal/platform/redis"
)

// RecordCache keeps recent registry responses in Redis so repeated syncs of
// the same affiliate within the TTL skip the upstream call. A nil client
// disables caching entirely.
type RecordCache struct {
	client *platformredis.Client
	ttl    time.Duration
}

func NewRecordCache(client *platformredis.Client, ttl time.Duration) *RecordCache {
	return &RecordCache{client: client, ttl: ttl}
}

func cacheKey(affiliateCode string) string {
	return "registry:org:" + affiliateCode
}

// Get returns the cached record, or nil on miss or disabled cache.
func (c *RecordCache) Get(ctx context.Context, affiliateCode string) (*RemoteOrganization, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, cacheKey(affiliateCode)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var record RemoteOrganization
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}
	return &record, nil
}

// Set stores the record under the registry TTL.
func (c *RecordCache) Set(ctx context.Context, record *RemoteOrganization) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(record.AffiliateCode), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func webhookKey(eventID string) string {
	return "registry:webhook:" + eventID
}

// SeenWebhook reports whether the event ID was already processed, giving
// replay protection across instances. With no Redis the answer is always
// false; the handler stays idempotent through sync-or-create semantics.
func (c *RecordCache) SeenWebhook(ctx context.Context, eventID string) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	n, err := c.client.Exists(ctx, webhookKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("webhook dedup check: %w", err)
	}
	return n > 0, nil
}

// MarkWebhookSeen records the event ID once processing succeeded. Failed
// attempts are never marked, so the registry's retry of the same event can
// still land.
func (c *RecordCache) MarkWebhookSeen(ctx context.Context, eventID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, webhookKey(eventID), 1, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("webhook dedup mark: %w", err)
	}
	return nil
}
