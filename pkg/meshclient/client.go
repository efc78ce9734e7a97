// Package meshclient is the producer-side HTTP client used by decoys
// and mesh nodes to report events to the analyzer. Reporting is best
// effort: failures are returned for logging but producers never treat
// them as fatal.
package meshclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"aegismesh/pkg/telemetry"
)

// Client talks to an analyzer or dashboard ingestion endpoint.
type Client struct {
	base string
	http *http.Client
}

// New constructs a client for the given base URL (scheme://host:port).
func New(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}
}

// IngestResponse is the analyzer's reply to a posted event.
type IngestResponse struct {
	Status    string  `json:"status"`
	RiskScore float64 `json:"risk_score"`
}

// PostEvent reports one event to POST /events.
func (c *Client) PostEvent(ctx context.Context, ev telemetry.Event) (*IngestResponse, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("meshclient: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/events", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("meshclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meshclient: post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("meshclient: post event: status %d: %s", resp.StatusCode, msg)
	}

	var out IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("meshclient: decode response: %w", err)
	}
	return &out, nil
}

// FetchEvents retrieves the most recent records from GET /events.
func (c *Client) FetchEvents(ctx context.Context, limit int) ([]json.RawMessage, error) {
	u := c.base + "/events"
	if limit > 0 {
		u += "?" + url.Values{"limit": []string{strconv.Itoa(limit)}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("meshclient: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meshclient: fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meshclient: fetch events: status %d", resp.StatusCode)
	}

	var out []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("meshclient: decode events: %w", err)
	}
	return out, nil
}
