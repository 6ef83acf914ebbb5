// Package http serves health probes and, in webhook mode, Telegram updates.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/velkoldin-dev/tratyallday/internal/log"
	"github.com/velkoldin-dev/tratyallday/internal/middleware/ratelimit"
	"github.com/velkoldin-dev/tratyallday/internal/middleware/security"
	"github.com/velkoldin-dev/tratyallday/internal/middleware/trace"
)

const (
	DefaultWebhookPath = "/telegram/webhook"
	readyTimeout       = 2 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr string
	// Ready is checked by /readyz; nil means always ready.
	Ready Pinger
	// Webhook receives Telegram updates when set.
	Webhook       http.Handler
	WebhookPath   string
	WebhookSecret string
	// Limiter throttles the probe endpoints per client IP.
	Limiter *ratelimit.Limiter
	Logger  *log.Logger
}

type Server struct {
	http.Server
	ready        Pinger
	logger       *log.Logger
	trace        *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	ips, err := security.NewIPExtractor()
	if err != nil {
		return nil, err
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	s := &Server{
		ready:  opts.Ready,
		logger: logger,
		trace:  trace.NewMiddleware(logger, ips.ClientIP),
	}

	mux := http.NewServeMux()
	probes := limiter.Middleware(ips.ClientIP)
	mux.Handle("GET /healthz", probes(http.HandlerFunc(handleHealth)))
	mux.Handle("GET /readyz", probes(http.HandlerFunc(s.handleReady)))

	if opts.Webhook != nil {
		path := opts.WebhookPath
		if path == "" {
			path = DefaultWebhookPath
		}
		mux.Handle("POST "+path, security.RequireSecretToken(opts.WebhookSecret)(opts.Webhook))
		logger.Info("Webhook route mounted", "path", path)
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.trace.Middleware(security.Headers(mux)),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.ServeOn(ctx, ln)
}

// ServeOn is Run on an existing listener.
func (s *Server) ServeOn(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully shuts down the server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "HTTP server shutting down",
			log.FieldOperation, log.OpShutdown,
			"requests_served", s.trace.TotalRequests())
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
