package handlers

import (
	"context"
	"net/http"
	"time"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports on the optional backends. Only configured backends
// are registered, so a deployment without Postgres or Redis is healthy.
type HealthHandler struct {
	checks  map[string]HealthChecker
	timeout time.Duration
}

func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	registered := make(map[string]HealthChecker, len(checks))
	for name, c := range checks {
		if c != nil {
			registered[name] = c
		}
	}
	return &HealthHandler{
		checks:  registered,
		timeout: 5 * time.Second,
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

func (h *HealthHandler) run(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, c := range h.checks {
		if err := c.Health(ctx); err != nil {
			healthy = false
			results[name] = "unhealthy: " + err.Error()
			continue
		}
		results[name] = "healthy"
	}
	return results, healthy
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks, healthy := h.run(r.Context())

	response := HealthResponse{
		Status:    "healthy",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, healthy := h.run(r.Context()); !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
