// Package accounting looks up catalogue items in the external accounting
// system so requesters can prefill name, rate and unit from a SKU.
package accounting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/procurekit/procurement-service/internal/config"
)

// ErrNotConfigured means no base URL, organization or token is set.
var ErrNotConfigured = errors.New("accounting: integration not configured")

// Item is the subset of an accounting item used to prefill a request.
type Item struct {
	SKU  string           `json:"sku"`
	Name string           `json:"name"`
	Rate *decimal.Decimal `json:"rate"`
	Unit string           `json:"unit"`
}

// APIError is a non-2xx reply from the accounting API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("accounting api returned %d: %s", e.StatusCode, e.Body)
}

// Client calls the accounting REST API.
type Client struct {
	baseURL string
	orgID   string
	token   string
	http    *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg config.AccountingConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		orgID:   cfg.OrganizationID,
		token:   cfg.AccessToken,
		http:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether lookups can be attempted.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.orgID != "" && c.token != ""
}

// LookupBySKU returns the first item with sku, or nil when none matches.
func (c *Client) LookupBySKU(ctx context.Context, sku string) (*Item, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, errors.New("accounting: sku is required")
	}

	q := url.Values{}
	q.Set("organization_id", c.orgID)
	q.Set("sku", sku)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/items?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("accounting request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read accounting response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), 300)}
	}

	var payload struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode accounting response: %w", err)
	}
	if len(payload.Items) == 0 {
		return nil, nil
	}
	item := payload.Items[0]
	return &item, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
