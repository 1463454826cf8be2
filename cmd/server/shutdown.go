package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
)

// shutdownHook runs after a termination signal, before the HTTP server drains. Errors
// are logged and shutdown continues.
type shutdownHook func(ctx context.Context) error

// runServerWithShutdown serves until SIGINT or SIGTERM, runs the hooks in order with
// their own timeout inside the overall deadline, then shuts the server down.
func runServerWithShutdown(server *http.Server, logger *log.Logger, shutdownTimeout, hookTimeout time.Duration, hooks ...shutdownHook) {
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i, h := range hooks {
		hCtx, hCancel := context.WithTimeout(ctx, hookTimeout)
		if err := h(hCtx); err != nil {
			logger.Warn("shutdown hook failed", "hook", i, "err", err)
		}
		if errors.Is(hCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("shutdown hook timed out", "hook", i)
		}
		hCancel()
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		return
	}
	logger.Info("shutdown complete")
}
