// Package dux provides a client for the DUX ERP REST services.
package dux

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://erp.duxsoftware.com.ar/WSERP/rest/services"
	dateLayout     = "2006-01-02"
)

// Client defines the ERP listings used by invoice reconciliation.
type Client interface {
	// ListBranches returns the company's sub-units.
	ListBranches(ctx context.Context) ([]Branch, error)
	// ListInvoices returns invoices for one branch and date range.
	ListInvoices(ctx context.Context, f InvoiceFilter) ([]Invoice, error)
}

// APIError is returned when DUX answers with a non-2xx status.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dux: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Option configures the DUX client.
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

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *httpClient) {
		if l != nil {
			c.log = l
		}
	}
}

type httpClient struct {
	apiKey    string
	companyID string
	baseURL   string
	http      *http.Client
	log       *zap.Logger
}

// NewClient creates a DUX client for the given company (idEmpresa).
func NewClient(apiKey, companyID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		companyID: companyID,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ListBranches(ctx context.Context) ([]Branch, error) {
	q := url.Values{}
	q.Set("idEmpresa", c.companyID)

	var out []Branch
	if err := c.get(ctx, "list branches", "/sucursales", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) ListInvoices(ctx context.Context, f InvoiceFilter) ([]Invoice, error) {
	q := url.Values{}
	q.Set("fechaDesde", f.From.Format(dateLayout))
	q.Set("fechaHasta", f.To.Format(dateLayout))
	q.Set("idEmpresa", c.companyID)
	q.Set("idSucursal", f.BranchID)

	var out invoiceList
	if err := c.get(ctx, "list invoices", "/facturas", q, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *httpClient) get(ctx context.Context, op, path string, q url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrapf(err, "dux: create %s request", op)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	c.log.Debug("dux: request", zap.String("path", path), zap.String("query", q.Encode()))

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "dux: %s", op)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "dux: read %s response", op)
	}

	c.log.Debug("dux: response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "dux: unmarshal %s response", op)
	}
	return nil
}
