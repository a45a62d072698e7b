// Package gatewayclient holds the HTTP client the Ingress Gateway (§4.F)
// uses to call the Stock service's Deduction Engine over the wire, the
// two being separate processes in this topology.
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

var (
	// ErrOutOfStock mirrors the Stock service's 409 response (InsufficientStock,
	// an exhausted-retries Conflict, or an unknown menu item — spec.md §4.F
	// does not distinguish them at this boundary).
	ErrOutOfStock = errors.New("out of stock")
	// ErrUpstreamTimeout is returned when the call exceeds its deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstreamUnavailable is returned on connection-level failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// DeductItem is one line of a deduction request.
type DeductItem struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int64  `json:"quantity"`
}

type deductRequest struct {
	OrderID     string       `json:"order_id"`
	PrincipalID uint64       `json:"principal_id"`
	Items       []DeductItem `json:"items"`
}

// DeductedItem is one line of a successful deduction response.
type DeductedItem struct {
	MenuItemID     string `json:"menu_item_id"`
	RemainingStock int64  `json:"remaining_stock"`
}

type deductResponse struct {
	OrderID       string         `json:"order_id"`
	DeductedItems []DeductedItem `json:"deducted_items"`
	Status        string         `json:"status"`
}

// StockClient calls the Stock service's HTTP surface.
type StockClient struct {
	baseURL string
	http    *http.Client
}

// NewStockClient creates a StockClient bound to baseURL with the given
// per-call timeout (spec.md §5: "Upstream HTTP calls from the gateway use
// a 5 s timeout; on expiry the caller sees 504").
func NewStockClient(baseURL string, timeout time.Duration) *StockClient {
	return &StockClient{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Deduct calls POST /stock/deduct and maps the response onto the gateway's
// error taxonomy (spec.md §4.F step 3).
func (c *StockClient) Deduct(ctx context.Context, orderID string, principalID uint64, items []DeductItem) ([]DeductedItem, error) {
	body, err := json.Marshal(deductRequest{OrderID: orderID, PrincipalID: principalID, Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deduct request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stock/deduct", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build deduct request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrUpstreamTimeout
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrUpstreamTimeout
		}
		return nil, ErrUpstreamUnavailable
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read deduct response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return nil, ErrOutOfStock
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("stock service returned %d: %s", resp.StatusCode, string(respBody))
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("stock service rejected request (%d): %s", resp.StatusCode, string(respBody))
	}

	var parsed deductResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode deduct response: %w", err)
	}
	return parsed.DeductedItems, nil
}
