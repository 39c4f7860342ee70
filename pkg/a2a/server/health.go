package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/weftworks/weft/pkg/a2a"
)

// ============================================================================
// HEALTH CHECKS
// ============================================================================

// memoryThresholdBytes is the heap size beyond which the memory check
// degrades.
const memoryThresholdBytes = 1 << 30 // 1 GiB

type checkResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

type healthStatus struct {
	Status        string        `json:"status"`
	Version       string        `json:"version"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Checks        []checkResult `json:"checks"`
}

// runChecks runs every internal probe. Status aggregation: all passing is
// healthy, a failing minority is degraded, a failing majority (or all) is
// unhealthy.
func (s *Server) runChecks() healthStatus {
	checks := []checkResult{
		s.checkRegistry(),
		s.checkMemory(),
		s.checkCard(),
		s.checkCodec(),
	}

	failed := 0
	for _, c := range checks {
		if !c.Healthy {
			failed++
		}
	}

	status := "healthy"
	switch {
	case failed == 0:
	case failed*2 < len(checks):
		status = "degraded"
	default:
		status = "unhealthy"
	}

	return healthStatus{
		Status:        status,
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime) / time.Second),
		Checks:        checks,
	}
}

func (s *Server) checkRegistry() checkResult {
	count := s.registry.Count()
	if count == 0 {
		return checkResult{Name: "registry", Detail: "no skills registered"}
	}
	return checkResult{Name: "registry", Healthy: true, Detail: fmt.Sprintf("%d skills", count)}
}

func (s *Server) checkMemory() checkResult {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	if stats.HeapAlloc > memoryThresholdBytes {
		return checkResult{
			Name:   "memory",
			Detail: fmt.Sprintf("heap %d MiB exceeds threshold", stats.HeapAlloc>>20),
		}
	}
	return checkResult{Name: "memory", Healthy: true, Detail: fmt.Sprintf("heap %d MiB", stats.HeapAlloc>>20)}
}

func (s *Server) checkCard() checkResult {
	if err := s.card.Validate(); err != nil {
		return checkResult{Name: "agent_card", Detail: err.Error()}
	}
	return checkResult{Name: "agent_card", Healthy: true}
}

// checkCodec round-trips a minimal envelope through the wire codec.
func (s *Server) checkCodec() checkResult {
	probe := a2a.NewInvokeRequest("health-probe", &a2a.TaskRequest{ID: "health-probe", Skill: "probe"})
	data, err := json.Marshal(probe)
	if err == nil {
		var decoded a2a.InvokeRequest
		err = json.Unmarshal(data, &decoded)
	}
	if err != nil {
		return checkResult{Name: "codec", Detail: err.Error()}
	}
	return checkResult{Name: "codec", Healthy: true}
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// handleHealth reports aggregated health. Healthy and degraded both
// answer 200 so load balancers keep routing while a minority of checks
// recovers; only unhealthy answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.runChecks()

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(health)
}

// ============================================================================
// HEALTH MONITOR
// ============================================================================

// MonitorHealth periodically re-runs the checks and logs status
// transitions. Blocks until ctx is cancelled.
func (s *Server) MonitorHealth(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := "healthy"
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := s.runChecks()
			if health.Status != last {
				slog.Warn("Health status changed", "from", last, "to", health.Status)
				last = health.Status
			}
		}
	}
}
