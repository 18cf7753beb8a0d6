package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fedremit/pkg/platform/sentinel"
)

// Client fetches affiliate records from the external registry. Every call
// carries a bounded timeout and retries transient failures (5xx, transport
// errors) with exponential backoff; 4xx responses are terminal.
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
	observe     func(seconds float64)
}

// ClientOption tweaks client construction.
type ClientOption func(*Client)

// WithBaseDelay overrides the first retry delay; tests shrink it.
func WithBaseDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.baseDelay = d }
}

// WithLatencyObserver wires the fetch-latency histogram.
func WithLatencyObserver(observe func(seconds float64)) ClientOption {
	return func(c *Client) { c.observe = observe }
}

func NewClient(baseURL, bearerToken string, timeout time.Duration, maxAttempts int, opts ...ClientOption) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	c := &Client{
		baseURL:     baseURL,
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		baseDelay:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves one affiliate record. Returns sentinel.ErrNotFound for a
// 404 and sentinel.ErrUnavailable (wrapped) once retries are exhausted.
func (c *Client) Fetch(ctx context.Context, affiliateCode string) (*RemoteOrganization, error) {
	if affiliateCode == "" {
		return nil, fmt.Errorf("affiliate code is required")
	}

	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(time.Since(start).Seconds())
		}
	}()

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		record, retryable, err := c.fetchOnce(ctx, affiliateCode)
		if err == nil {
			return record, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("registry fetch failed after %d attempts: %w: %w",
		c.maxAttempts, sentinel.ErrUnavailable, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, affiliateCode string) (record *RemoteOrganization, retryable bool, err error) {
	url := fmt.Sprintf("%s/organizations/%s", c.baseURL, affiliateCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var remote RemoteOrganization
		if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
			return nil, false, fmt.Errorf("decode registry response: %w", err)
		}
		return &remote, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("affiliate %s: %w", affiliateCode, sentinel.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("registry returned %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("registry returned %d", resp.StatusCode)
	}
}
