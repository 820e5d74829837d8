package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medsim-planet/session-service/config"
	"github.com/medsim-planet/session-service/internal/postgres"
	"github.com/medsim-planet/session-service/internal/security"
	"github.com/medsim-planet/session-service/internal/service"
	httpx "github.com/medsim-planet/session-service/internal/transport/http"
	"github.com/medsim-planet/session-service/internal/transport/ws"
	"github.com/medsim-planet/session-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting session-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	sessionRepo := postgres.NewSessionRepository(db.Pool)
	studentRepo := postgres.NewStudentRepository(db.Pool)
	membershipRepo := postgres.NewMembershipRepository(db.Pool)

	// --- presence engine ---
	registry := ws.NewRegistry()
	router := ws.NewRouter(registry)
	limiter := ws.NewRateLimiter(cfg.RateLimitWindow(), cfg.RateLimit.Max)
	verifier := security.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	coordinator := ws.NewCoordinator(
		registry, router, limiter,
		sessionRepo, studentRepo, membershipRepo,
		verifier,
	)

	// --- services ---
	presenceSvc := service.NewPresenceService(sessionRepo, membershipRepo, registry, cfg.GraceWindow())
	presenceSvc.SetNotifier(coordinator)
	sessionSvc := service.NewSessionService(sessionRepo, membershipRepo, coordinator)

	// --- HTTP + WS ---
	wsServer := ws.NewServer(registry, coordinator)
	handler := httpx.NewHandler(sessionSvc, presenceSvc)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httpx.NewRouter(handler, verifier, wsServer),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- background tasks ---
	go presenceSvc.RunSweeper(ctx, cfg.SweepInterval())
	go limiter.Run(ctx, cfg.RateLimitWindow())

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
