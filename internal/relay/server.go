package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quokkahq/tokenforge/pkg/authsdk"
	"github.com/quokkahq/tokenforge/pkg/httpx"
	"github.com/quokkahq/tokenforge/pkg/slogx"
)

// Server is the relay application: a small HTTP service that obtains tokens
// from the authorization server, caches them, and forwards authenticated
// calls on behalf of its own anonymous callers.
type Server struct {
	cfg    Config
	logger *slog.Logger

	sdk   *authsdk.SDKClient
	cache *TokenCache

	server *http.Server
}

func NewServer(cfg Config) *Server {
	logger := slogx.New(slogx.Config{
		Service: "tokenforge-relay",
		Version: "v0.1.0",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	sdk := authsdk.NewSDKClient(cfg.AuthServerURL)

	s := &Server{
		cfg:    cfg,
		logger: logger,
		sdk:    sdk,
		cache:  NewTokenCache(sdk, cfg),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/hello", s.handleHello)
	mux.HandleFunc("GET /api/profile", s.handleProfile)
	mux.HandleFunc("GET /api/data", s.handleData)
	mux.HandleFunc("POST /api/create-data", s.handleCreateData)
	mux.HandleFunc("GET /api/token-info", s.handleTokenInfo)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpx.Chain(mux, slogx.HTTPMiddleware(logger)),
		ReadHeaderTimeout: 3 * time.Second,
	}

	return s
}

// Run starts the relay and blocks until shutdown is requested.
func (s *Server) Run() error {
	s.logger.Info("relay starting", "port", s.cfg.Port, "auth_server", s.cfg.AuthServerURL)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		s.logger.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	s.logger.Info("relay stopped")
	return nil
}
