// Package ghl provides a client for the LeadConnector (GoHighLevel) contacts API.
package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://services.leadconnectorhq.com"
	apiVersion     = "2021-07-28"
)

// Client defines the CRM contact operations used by the sync pipeline.
type Client interface {
	// UpsertContact creates or updates a contact. The CRM deduplicates on
	// the location and the contact's identifying fields.
	UpsertContact(ctx context.Context, req UpsertContactRequest) (*UpsertContactResponse, error)
	// SearchContacts runs an advanced contact search.
	SearchContacts(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	// UpdateContact applies a partial update to an existing contact.
	UpdateContact(ctx context.Context, contactID string, req UpdateContactRequest) error
}

// APIError is returned when the CRM answers with a non-2xx status.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ghl: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Option configures the CRM client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit paces requests to rps per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *httpClient) {
		if l != nil {
			c.log = l
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewClient creates a CRM client authenticated with a private integration key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) UpsertContact(ctx context.Context, req UpsertContactRequest) (*UpsertContactResponse, error) {
	var out UpsertContactResponse
	if err := c.do(ctx, "upsert contact", http.MethodPost, "/contacts/upsert", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) SearchContacts(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.do(ctx, "search contacts", http.MethodPost, "/contacts/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) UpdateContact(ctx context.Context, contactID string, req UpdateContactRequest) error {
	if contactID == "" {
		return eris.New("ghl: contact id is required")
	}
	return c.do(ctx, "update contact", http.MethodPut, "/contacts/"+url.PathEscape(contactID), req, nil)
}

// do sends one JSON request. There are no retries: a failed call is reported
// to the caller as-is.
func (c *httpClient) do(ctx context.Context, op, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "ghl: rate limit")
		}
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return eris.Wrapf(err, "ghl: marshal %s", op)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrapf(err, "ghl: create %s request", op)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Version", apiVersion)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.log.Debug("ghl: request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("authorization", "Bearer [MASKED]"),
		zap.ByteString("payload", payload),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("ghl: request failed", zap.String("op", op), zap.Error(err))
		return eris.Wrapf(err, "ghl: %s", op)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "ghl: read %s response", op)
	}

	c.log.Debug("ghl: response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", body),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "ghl: unmarshal %s response", op)
	}
	return nil
}
