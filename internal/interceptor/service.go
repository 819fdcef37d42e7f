// ABOUTME: Interceptor service assembly: Redis wiring, router, lifecycle
// ABOUTME: One HTTP server fed by broker push subscriptions, stateless otherwise

package interceptor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/2389/convo-relay/internal/config"
	"github.com/2389/convo-relay/internal/dedupe"
	"github.com/2389/convo-relay/internal/metrics"
	"github.com/2389/convo-relay/internal/registry"
	"github.com/2389/convo-relay/internal/routing"
)

// Service is the event ingestion process. It owns no conversations and
// keeps no per-conversation state; it only resolves owners and forwards.
type Service struct {
	config     *config.Config
	logger     *slog.Logger
	redis      *redis.Client
	dedupe     *dedupe.Cache
	httpServer *http.Server
}

// New builds the service from configuration. Pass nil logger for default.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	cache := dedupe.New(cfg.Dedupe.TTL, cfg.Dedupe.MaxSize)

	publisher := routing.NewPublisher(
		registry.NewRedisRegistry(client),
		routing.NewRedisChannel(client),
		m,
		logger,
	)

	handler := NewHandler(publisher, cache, m, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	handler.Routes(r)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	}

	return &Service{
		config: cfg,
		logger: logger.With("component", "interceptor-service"),
		redis:  client,
		dedupe: cache,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the assembled router, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails. Returns nil on graceful shutdown.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	serverErr := s.waitForShutdownSignal(ctx, errCh)
	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// waitForShutdownSignal waits for context cancellation or server error.
func (s *Service) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (s *Service) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases resources.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.dedupe.Close()
	if cerr := s.redis.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
