// Package remote provides an HTTP client for a remote push-pull exchange.
//
// Each exchange is a JSON POST of domain.ExchangeRequest answered with a
// domain.ExchangeResult. Requests carry an OAuth2 bearer token when one is
// configured and are spaced out by a token bucket rate limiter.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
)

// maxErrorBody caps how much of an error response is read into the error.
const maxErrorBody = 4096

// Ensure Client implements the interface.
var _ driven.Exchanger = (*Client)(nil)

// Config configures a Client.
type Config struct {
	// URL is the exchange endpoint.
	URL string

	// Token is a bearer token. Empty sends no Authorization header.
	Token string

	// TokenSource overrides Token with a refreshing source.
	TokenSource oauth2.TokenSource

	// RatePerSecond limits requests. Zero disables limiting.
	RatePerSecond float64

	// Burst is the rate limiter burst. Defaults to 1.
	Burst int

	// HTTPClient is the base client. Defaults to a client with a 60s timeout.
	HTTPClient *http.Client
}

// Client is an HTTP implementation of driven.Exchanger.
type Client struct {
	url     string
	http    *http.Client
	limiter *RateLimiter
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: exchange url is required", domain.ErrInvalidInput)
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, fmt.Errorf("%w: exchange url %q must be http or https", domain.ErrInvalidInput, cfg.URL)
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 60 * time.Second}
	}

	src := cfg.TokenSource
	if src == nil && cfg.Token != "" {
		src = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	}

	client := base
	if src != nil {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = oauth2.NewClient(ctx, src)
		client.Timeout = base.Timeout
	}

	return &Client{
		url:     cfg.URL,
		http:    client,
		limiter: NewRateLimiter(cfg.RatePerSecond, cfg.Burst),
	}, nil
}

// Exchange posts records and the cursor and decodes the authoritative response.
func (c *Client) Exchange(ctx context.Context, records []domain.UnsyncedRecord, namespace, cursor string) (*domain.ExchangeResult, error) {
	if records == nil {
		records = []domain.UnsyncedRecord{}
	}
	body, err := json.Marshal(domain.ExchangeRequest{
		Records:    records,
		Namespace:  namespace,
		SyncCursor: cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.Backoff(resp.Header)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result domain.ExchangeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// statusError builds an error from a non-200 response.
// 400 responses are the server rejecting the payload and wrap domain.ErrValidation.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(raw))
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	if resp.StatusCode == http.StatusBadRequest {
		msg = strings.TrimPrefix(msg, domain.ErrValidation.Error()+": ")
		return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}
	if msg == "" {
		return fmt.Errorf("exchange failed with status %d", resp.StatusCode)
	}
	return fmt.Errorf("exchange failed with status %d: %s", resp.StatusCode, msg)
}
