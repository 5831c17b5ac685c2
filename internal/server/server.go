// Package server exposes the discovery operation over HTTP: a JSON endpoint
// compatible with existing front ends, a health probe and a websocket
// variant that streams walk progress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chapterworks/spwalk/internal/config"
	"github.com/chapterworks/spwalk/internal/service"
)

// Fixed response bodies. Error detail stays in the server log.
const (
	msgComplete     = "Access token flow complete"
	msgMissingToken = "Missing access token"
	msgServerError  = "Server error"
	msgBodyTooLarge = "Request body too large"
)

const readHeaderTimeout = 10 * time.Second

// Runner performs one discovery run. *service.Orchestrator satisfies it.
type Runner interface {
	RunWithOptions(ctx context.Context, userToken string, opts service.RunOptions) (*service.Result, error)
}

// Server routes requests to a Runner. Per-request settings (allowed
// origins, body limit) are read from the Holder so reloads apply to the
// next request.
type Server struct {
	holder *config.Holder
	runner Runner
	logger *slog.Logger

	// runs counts handlers that may still call the runner, including
	// hijacked websocket connections that http.Server.Shutdown ignores.
	runs sync.WaitGroup
}

// New creates a Server.
func New(holder *config.Holder, runner Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{holder: holder, runner: runner, logger: logger}
}

// Handler returns the routed handler with request-id, logging and CORS
// middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /accessToken", s.tracked(s.handleAccessToken))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.tracked(s.handleWebSocket))

	return s.withRequestID(s.withLogging(s.withCORS(mux)))
}

// Run listens on server.listen and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	addr := s.holder.Config().Server.Listen

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully within server.shutdown_timeout. Runs still going when the
// timeout expires are canceled. Serve returns only after every handler that
// started a run has finished, so callers may close what the runner uses.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// Request contexts outlive ctx during the drain.
	runCtx, stopRuns := context.WithCancel(context.WithoutCancel(ctx))
	defer stopRuns()

	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return runCtx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening", slog.String("addr", ln.Addr().String()))

		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: serve: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		timeout := s.holder.Config().Server.ShutdownTimeoutDuration()
		s.logger.Info("shutting down", slog.Duration("timeout", timeout))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		err := hs.Shutdown(shutdownCtx)
		s.drainRuns(shutdownCtx, stopRuns)

		if err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}

		return nil
	})

	return g.Wait()
}

// tracked registers h in s.runs for the duration of each call.
func (s *Server) tracked(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.runs.Add(1)
		defer s.runs.Done()

		h(w, r)
	}
}

// drainRuns waits for tracked handlers. Once ctx expires the remaining runs
// are canceled and awaited.
func (s *Server) drainRuns(ctx context.Context, stopRuns context.CancelFunc) {
	done := make(chan struct{})

	go func() {
		s.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	s.logger.Warn("shutdown timeout reached, canceling in-flight walks")
	stopRuns()
	<-done
}

// statusFor maps a run error to the HTTP status and body shown to callers.
func statusFor(err error) (int, string) {
	if errors.Is(err, service.ErrMissingToken) {
		return http.StatusBadRequest, msgMissingToken
	}

	return http.StatusInternalServerError, msgServerError
}
