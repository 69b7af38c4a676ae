// Package observability provides the ambient infrastructure shared by the
// navadmin binaries: structured JSON logging, Prometheus metrics, health
// probes and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("backend", "relational").Info("store ready")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ClicksRecordedTotal.Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(store, redisClient)
//	observability.RegisterHealthRoutes(mux, checker)
package observability
