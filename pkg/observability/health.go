package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// Pinger is the slice of the store contract the health checker needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker probes the store backend and the optional Redis cache.
type HealthChecker struct {
	store Pinger
	redis *redis.Client
}

// NewHealthChecker creates a health checker. The redis client may be nil.
func NewHealthChecker(store Pinger, redis *redis.Client) *HealthChecker {
	return &HealthChecker{store: store, redis: redis}
}

// HealthStatus is the readiness probe payload.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus reports the health of a single dependency.
type DependencyStatus struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency_ms,omitempty"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness always answers 200 while the process runs.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now().UTC(),
	})
}

// Readiness checks the dependencies. Unhealthy answers 503; a degraded
// process (store fine, cache down) still answers 200.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(status)
}

// Check probes every dependency and folds the results into one status. The
// store is required; Redis is an optional cache whose loss only degrades.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.store != nil {
		st := h.checkStore(ctx)
		status.Dependencies["store"] = st
		if st.Status == StatusUnhealthy {
			status.Status = StatusUnhealthy
		}
	}

	if h.redis != nil {
		rs := h.checkRedis(ctx)
		status.Dependencies["redis"] = rs
		if rs.Status == StatusUnhealthy && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

func (h *HealthChecker) checkStore(ctx context.Context) DependencyStatus {
	start := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		return DependencyStatus{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Latency: time.Since(start),
		}
	}
	return DependencyStatus{Status: StatusHealthy, Latency: time.Since(start)}
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	start := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return DependencyStatus{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Latency: time.Since(start),
		}
	}
	return DependencyStatus{Status: StatusHealthy, Latency: time.Since(start)}
}

// RegisterHealthRoutes registers the probe endpoints.
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
