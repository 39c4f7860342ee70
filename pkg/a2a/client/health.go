package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// HealthReport is the client-side view of a remote agent's health.
// Reachable is false when the probe itself failed.
type HealthReport struct {
	Status    string                 `json:"status"`
	Reachable bool                   `json:"reachable"`
	Latency   time.Duration          `json:"latency"`
	Checks    map[string]interface{} `json:"checks,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Healthy reports whether the remote answered and declared itself healthy.
func (r *HealthReport) Healthy() bool {
	return r.Reachable && r.Status == "healthy"
}

// HealthCheck probes the agent's health endpoint. It never returns an
// error: unreachable or misbehaving agents are reported as such.
func (c *Client) HealthCheck(ctx context.Context, agentURL string) *HealthReport {
	report := &HealthReport{Status: "unknown"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalizeBaseURL(agentURL)+healthPath, nil)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	req.Header.Set("Accept", "application/json")
	c.setCommonHeaders(req)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	report.Latency = time.Since(start)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	defer resp.Body.Close()

	report.Reachable = true

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	var payload struct {
		Status string                 `json:"status"`
		Checks map[string]interface{} `json:"checks"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// A reachable endpoint with an unreadable body still tells us
		// something: up, but not speaking the protocol.
		report.Status = "unknown"
		report.Error = "unparseable health response"
		return report
	}

	report.Status = payload.Status
	report.Checks = payload.Checks
	if report.Status == "" {
		if resp.StatusCode == http.StatusOK {
			report.Status = "healthy"
		} else {
			report.Status = "unhealthy"
		}
	}
	return report
}
