// Package query is the request/response collaborator client, used for
// point-in-time reads outside the event stream: health, aggregate
// metrics, policy configuration and forensic snapshots. The monitor
// uses it to seed derived state and to reconcile after a reconnect gap.
package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client makes REST calls to the remote engine.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient targets the given base URL (e.g. "http://127.0.0.1:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Health is the engine liveness report.
type Health struct {
	Status   string `json:"status"`
	UptimeMs int64  `json:"uptimeMs"`
	Sessions int    `json:"sessions"`
}

// Metrics are session-level aggregates used to seed derived state.
type Metrics struct {
	SessionID     string   `json:"sessionId"`
	RiskScore     int      `json:"riskScore"`
	Trust         float64  `json:"trust"`
	Defcon        int      `json:"defcon"`
	ActiveThreats []string `json:"activeThreats"`
	EventCount    int      `json:"eventCount"`
}

// Policy is the engine's current mediation configuration.
type Policy struct {
	BlockedDomains   []string `json:"blockedDomains"`
	SpendLimitCents  int      `json:"spendLimitCents"`
	ConfirmThreshold int      `json:"confirmThreshold"`
	AutoBlock        bool     `json:"autoBlock"`
}

// ForensicSnapshot is one entry of the engine-side replay buffer.
type ForensicSnapshot struct {
	Index         int      `json:"index"`
	Timestamp     string   `json:"timestamp"`
	RiskScore     float64  `json:"riskScore"`
	TrustScore    float64  `json:"trustScore"`
	ActiveThreats []string `json:"activeThreats"`
	CurrentURL    string   `json:"currentUrl,omitempty"`
}

// Health fetches /api/health.
func (c *Client) Health() (*Health, error) {
	var h Health
	if err := c.get("/api/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Metrics fetches /api/sessions/{id}/metrics.
func (c *Client) Metrics(sessionID string) (*Metrics, error) {
	var m Metrics
	if err := c.get("/api/sessions/"+sessionID+"/metrics", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Policy fetches /api/policy.
func (c *Client) Policy() (*Policy, error) {
	var p Policy
	if err := c.get("/api/policy", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SnapshotByIndex fetches /api/sessions/{id}/snapshots/{index}.
func (c *Client) SnapshotByIndex(sessionID string, index int) (*ForensicSnapshot, error) {
	var s ForensicSnapshot
	if err := c.get(fmt.Sprintf("/api/sessions/%s/snapshots/%d", sessionID, index), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdatePolicy sends POST /api/policy.
func (c *Client) UpdatePolicy(p *Policy) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	resp, err := c.client.Post(c.baseURL+"/api/policy", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("update policy failed (%d): %s", resp.StatusCode, string(msg))
	}
	return nil
}

func (c *Client) get(path string, out any) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
