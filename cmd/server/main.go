package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deviceauth/internal/auth"
	"deviceauth/internal/config"
	"deviceauth/internal/db"
	"deviceauth/internal/logging"
	"deviceauth/internal/security"
	"deviceauth/internal/server"
	"deviceauth/internal/server/middleware"
	sessionrepo "deviceauth/internal/session/repository"
	sessionservice "deviceauth/internal/session/service"
	"deviceauth/internal/telemetry/otel"
	"deviceauth/internal/token"
	userrepo "deviceauth/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger not built yet; config errors go straight to stderr.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "deviceauth")
	if err != nil {
		log.Error("otel setup failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn("otel shutdown failed", "err", err)
		}
	}()

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("database open failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	codec, err := token.NewCodec(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry, log)
	if err != nil {
		log.Error("token codec setup failed", "err", err)
		os.Exit(1)
	}

	users := userrepo.NewPostgresRepository(pool)
	sessions := sessionrepo.NewPostgresRepository(pool)
	manager := sessionservice.NewManager(sessions, log)
	hasher := security.NewHasher(cfg.BcryptCost)
	engine := auth.NewEngine(users, codec, manager, hasher, log)

	guard := middleware.NewAuthenticator(codec, users)
	if cfg.RequireLiveSession {
		guard = middleware.NewAuthenticatorWithLiveSession(codec, users, manager)
	}

	handler := server.NewRouter(server.NewHandlers(engine), guard, log, cfg.CORSOrigins())

	// Retention sweep runs in-process; deployments that prefer an external
	// scheduler run cmd/sweeper instead and can set a very long interval here.
	go func() {
		ticker := time.NewTicker(cfg.SweepEvery())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := manager.Sweep(ctx, cfg.SessionRetention()); err != nil {
					log.Warn("session sweep failed", "err", err)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("serve failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", "err", err)
	}
	log.Info("http server stopped")
}
