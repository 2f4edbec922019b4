package handlers

import (
	"context"
	"sync"
	"time"
)

// ReadinessCheck probes one dependency. Required dependencies make the service unready when
// they fail; optional ones only mark it degraded.
type ReadinessCheck struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

// Readiness is the aggregated probe result.
type Readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Ready reports whether every required dependency answered.
func (r Readiness) Ready() bool {
	return r.Status != "unavailable"
}

// HealthHandler runs readiness probes.
type HealthHandler struct {
	checks  []ReadinessCheck
	timeout time.Duration
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checks []ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 3 * time.Second}
}

// Readiness runs every probe concurrently.
func (h *HealthHandler) Readiness(ctx context.Context) Readiness {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	result := Readiness{Status: "ready", Checks: make(map[string]string, len(h.checks))}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, check := range h.checks {
		wg.Add(1)
		go func(check ReadinessCheck) {
			defer wg.Done()
			err := check.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				result.Checks[check.Name] = "ok"
				return
			}
			result.Checks[check.Name] = "unavailable"
			if check.Required {
				result.Status = "unavailable"
			} else if result.Status == "ready" {
				result.Status = "degraded"
			}
		}(check)
	}
	wg.Wait()

	return result
}
