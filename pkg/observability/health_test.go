package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHealthCheckHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checker := NewHealthChecker(fakePinger{}, client)
	status := checker.Check(context.Background())

	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["store"].Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["redis"].Status)
}

func TestHealthCheckStoreDown(t *testing.T) {
	checker := NewHealthChecker(fakePinger{err: errors.New("conn refused")}, nil)
	status := checker.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Contains(t, status.Dependencies["store"].Message, "conn refused")
}

func TestHealthCheckRedisDownOnlyDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	checker := NewHealthChecker(fakePinger{}, client)
	status := checker.Check(context.Background())

	assert.Equal(t, StatusDegraded, status.Status)
}

func TestReadinessEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHealthRoutes(mux, NewHealthChecker(fakePinger{}, nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusHealthy, status.Status)

	// Liveness stays 200 even when the store is gone.
	mux = http.NewServeMux()
	RegisterHealthRoutes(mux, NewHealthChecker(fakePinger{err: errors.New("down")}, nil))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
