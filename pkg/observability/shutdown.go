package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownFunc releases one resource during shutdown.
type ShutdownFunc func(context.Context) error

// ShutdownManager drains the HTTP server and runs registered cleanup
// functions when the process receives SIGINT or SIGTERM.
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	funcs   []ShutdownFunc
	timeout time.Duration
}

// NewShutdownManager creates a shutdown manager for the given server.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{logger: logger, server: server, timeout: timeout}
}

// Register adds a cleanup function. Functions run in registration order
// after the HTTP server has drained.
func (sm *ShutdownManager) Register(fn ShutdownFunc) {
	sm.funcs = append(sm.funcs, fn)
}

// Wait blocks until a termination signal arrives, then shuts everything
// down within the configured timeout.
func (sm *ShutdownManager) Wait() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	sm.logger.Infof("received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	var failed int
	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("server shutdown failed")
			failed++
		}
	}
	for _, fn := range sm.funcs {
		if err := fn(ctx); err != nil {
			sm.logger.WithError(err).Error("cleanup failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("shutdown completed with %d errors", failed)
	}
	sm.logger.Info("shutdown complete")
	return nil
}
