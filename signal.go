package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// shutdownContext returns a context canceled by the first SIGINT or SIGTERM.
// After that signal the default handlers are restored, so a second signal
// terminates the process even if the drain hangs. The returned func releases
// the signal registration early.
func shutdownContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)

	var released atomic.Bool

	go func() {
		<-ctx.Done()
		stop()

		if parent.Err() == nil && !released.Load() {
			logger.Info("shutdown signal received, draining in-flight walks (signal again to force exit)")
		}
	}()

	return ctx, func() {
		released.Store(true)
		stop()
	}
}
