// Package mercadopago is a minimal client for the Mercado Pago preapproval
// (recurring billing) API, used to confirm subscription status.
package mercadopago

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.mercadopago.com"

// Client calls the preapproval API with a server-held bearer credential.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// Preapproval is the subset of the provider's preapproval record we consume.
type Preapproval struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	Reason          string  `json:"reason,omitempty"`
	PayerEmail      string  `json:"payer_email,omitempty"`
	ExternalRef     string  `json:"external_reference,omitempty"`
	NextPaymentDate string  `json:"next_payment_date,omitempty"`
	TransactionAmt  float64 `json:"transaction_amount,omitempty"`
}

// NewClient constructs a client. The access token is injected here rather
// than read from process-global state.
func NewClient(baseURL, accessToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional short-TTL caching of status lookups.
// Correctness does not depend on it; a cache miss or Redis outage falls
// through to the live call.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// GetPreapproval fetches one preapproval record.
func (c *Client) GetPreapproval(ctx context.Context, preapprovalID string) (*Preapproval, error) {
	endpoint := fmt.Sprintf("%s/preapproval/%s", c.baseURL, url.PathEscape(preapprovalID))
	cacheKey := "preapproval:" + preapprovalID

	var pa Preapproval
	if c.readCache(ctx, cacheKey, &pa) {
		return &pa, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("preapproval %s: http %d", preapprovalID, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&pa); err != nil {
		return nil, fmt.Errorf("decode preapproval: %w", err)
	}

	c.writeCache(ctx, cacheKey, pa)
	return &pa, nil
}

// PreapprovalStatus returns just the status field. It satisfies the
// premium.StatusProvider interface.
func (c *Client) PreapprovalStatus(ctx context.Context, preapprovalID string) (string, error) {
	pa, err := c.GetPreapproval(ctx, preapprovalID)
	if err != nil {
		return "", err
	}
	return pa.Status, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}
