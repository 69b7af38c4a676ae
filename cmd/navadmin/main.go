package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/guluwater/navadmin/pkg/analytics"
	"github.com/guluwater/navadmin/pkg/api"
	"github.com/guluwater/navadmin/pkg/audit"
	"github.com/guluwater/navadmin/pkg/config"
	"github.com/guluwater/navadmin/pkg/httputil"
	"github.com/guluwater/navadmin/pkg/observability"
	"github.com/guluwater/navadmin/pkg/store"
	"github.com/guluwater/navadmin/pkg/store/postgres"
)

func main() {
	// Optional .env for local development; the file is absent in production.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	st := openStore(cfg, logger)
	logger.WithField("backend", string(st.Backend())).Info("store ready")

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, stats cache runs local-only")
			redisClient.Close()
			redisClient = nil
		}
		cancel()
		if redisClient != nil {
			defer redisClient.Close()
		}
	}

	aggregator := analytics.NewAggregator(st, logger, metrics)
	recorder := analytics.NewRecorder(st, aggregator, logger, metrics)
	statsService := analytics.NewService(st, logger)
	statsCache := analytics.NewStatsCache(statsService, redisClient, analytics.CacheConfig{
		TTL:       cfg.Cache.TTL,
		LocalSize: cfg.Cache.LocalSize,
	}, logger, metrics)
	activity := audit.NewLogger(st, logger)

	server := api.NewServer(st, recorder, statsCache, activity, logger)

	middleware := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
	)
	handler := middleware(server)
	if metrics != nil {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}

	mainServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := newHealthServer(cfg, st, redisClient, registry, metrics)

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.WithField("addr", mainServer.Addr).Info("api server listening")
		if err := mainServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			os.Exit(1)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, mainServer, cfg.Server.ShutdownTimeout)
	shutdown.Register(healthServer.Shutdown)
	shutdown.Register(func(context.Context) error { return st.Close() })
	if err := shutdown.Wait(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
}

// openStore connects the relational backend, falling back to the in-memory
// store when the database is unconfigured or unreachable. The choice is made
// once; there is no per-request retry.
func openStore(cfg *config.Config, logger *observability.Logger) store.Store {
	seed := store.DefaultSeed()
	if cfg.SeedFile != "" {
		loaded, err := store.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			logger.WithError(err).WithField("path", cfg.SeedFile).
				Warn("seed file unusable, using built-in dataset")
		} else if err := loaded.Validate(); err != nil {
			logger.WithError(err).WithField("path", cfg.SeedFile).
				Warn("seed file invalid, using built-in dataset")
		} else {
			seed = loaded
		}
	}

	if cfg.Database.Configured() {
		pg, err := postgres.New(postgres.Config{
			Host:           cfg.Database.Host,
			Port:           cfg.Database.Port,
			User:           cfg.Database.User,
			Password:       cfg.Database.Password,
			Database:       cfg.Database.Name,
			SSLMode:        cfg.Database.SSLMode,
			MaxConns:       cfg.Database.MaxConns,
			ConnectTimeout: cfg.Database.ConnectTimeout,
		}, seed)
		if err == nil {
			return pg
		}
		logger.WithError(err).Warn("database unavailable, falling back to in-memory store")
	} else {
		logger.Info("no database configured, using in-memory store")
	}

	mem, err := store.NewMemoryStore(seed)
	if err != nil {
		// The built-in dataset always validates; only a custom seed that
		// slipped past the checks above can land here.
		logger.WithError(err).Error("seed rejected, starting empty")
		mem, _ = store.NewMemoryStore(&store.SeedData{})
	}
	return mem
}

func newHealthServer(cfg *config.Config, st store.Store, redisClient *redis.Client,
	registry *prometheus.Registry, metrics *observability.Metrics) *http.Server {
	mux := http.NewServeMux()

	checker := observability.NewHealthChecker(st, redisClient)
	observability.RegisterHealthRoutes(mux, checker)

	if metrics != nil {
		if pg, ok := st.(*postgres.Store); ok {
			go func() {
				ticker := time.NewTicker(15 * time.Second)
				defer ticker.Stop()
				for range ticker.C {
					metrics.ObserveDBStats(pg.Stats())
				}
			}()
		}
		observability.RegisterMetricsEndpoint(mux, registry)
	}

	return &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: mux,
	}
}
