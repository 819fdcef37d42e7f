// ABOUTME: Connector service assembly: registry, rooms, hub, subscriber, HTTP
// ABOUTME: One instance per process, identified by a fresh server ID at startup

package connector

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/2389/convo-relay/internal/auth"
	"github.com/2389/convo-relay/internal/config"
	"github.com/2389/convo-relay/internal/conversation"
	"github.com/2389/convo-relay/internal/dialogflow"
	"github.com/2389/convo-relay/internal/identity"
	"github.com/2389/convo-relay/internal/metrics"
	"github.com/2389/convo-relay/internal/registry"
	"github.com/2389/convo-relay/internal/routing"
	"github.com/2389/convo-relay/internal/session"
)

// Service is one connector instance. Clients connect to it over
// websockets; events reach it through the per-instance routing channels
// it subscribes to at startup.
type Service struct {
	config     *config.Config
	logger     *slog.Logger
	serverID   identity.ServerID
	redis      *redis.Client
	hub        *session.Hub
	subscriber *routing.Subscriber
	httpServer *http.Server
}

// New builds a connector instance from configuration. The backend API
// proxy is mounted only when dialogflow.enabled is set, since it needs
// application default credentials at construction time. Pass nil logger
// for default.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	secret, err := cfg.Auth.Secret()
	if err != nil {
		return nil, fmt.Errorf("loading token secret: %w", err)
	}
	verifier := auth.NewJWTVerifier(secret, cfg.Dialogflow.ProjectID)

	checker, err := auth.NewRegistrationChecker(cfg.Auth.Option, cfg.Auth.SalesforceUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("configuring registration: %w", err)
	}

	serverID := identity.New()
	logger.Info("connector identity assigned", "server_id", serverID)

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	rooms := conversation.NewRooms(logger)
	manager := session.NewManager(serverID, registry.NewRedisRegistry(client), rooms, logger)
	hub := session.NewHub(verifier, manager, cfg.CORS.AllowedOrigins, logger)
	subscriber := routing.NewSubscriber(client, serverID, rooms, m, logger)

	svc := &Service{
		config:     cfg,
		logger:     logger.With("component", "connector-service"),
		serverID:   serverID,
		redis:      client,
		hub:        hub,
		subscriber: subscriber,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/status", svc.handleStatus)
	r.Post("/register", svc.registerHandler(checker, verifier))
	r.Get("/ws", hub.ServeHTTP)

	if cfg.Dialogflow.Enabled {
		dfClient, err := dialogflow.NewClient(ctx, logger)
		if err != nil {
			return nil, fmt.Errorf("creating backend API client: %w", err)
		}
		proxy := dialogflow.NewProxy(dfClient, logger)
		r.Group(func(r chi.Router) {
			r.Use(auth.TokenRequired(verifier))
			proxy.Routes(r)
		})
	}

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	}

	svc.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return svc, nil
}

// ServerID returns this instance's routing identity.
func (s *Service) ServerID() identity.ServerID {
	return s.serverID
}

// Handler exposes the assembled router, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run subscribes to this instance's routing channels, starts the HTTP
// server, and blocks until the context is canceled or the server fails.
// Returns nil on graceful shutdown.
func (s *Service) Run(ctx context.Context) error {
	if err := s.subscriber.Start(ctx); err != nil {
		return fmt.Errorf("subscribing to routing channels: %w", err)
	}

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

// Shutdown closes client connections, the routing subscription, the HTTP
// server, and the Redis client, in that order. Closing connections first
// lets their teardown release conversation ownership while Redis is
// still reachable.
func (s *Service) Shutdown(ctx context.Context) error {
	s.hub.Close()
	s.subscriber.Close()
	err := s.httpServer.Shutdown(ctx)
	if cerr := s.redis.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
