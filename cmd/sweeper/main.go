// sweeper periodically deletes inactive sessions past the retention window.
// Runs standalone for deployments that schedule the sweep out of process;
// the server also runs the same sweep in-process on SWEEP_INTERVAL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deviceauth/internal/config"
	"deviceauth/internal/db"
	"deviceauth/internal/logging"
	sessionrepo "deviceauth/internal/session/repository"
	sessionservice "deviceauth/internal/session/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("database open failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	manager := sessionservice.NewManager(sessionrepo.NewPostgresRepository(pool), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("sweeper started", "interval", cfg.SweepEvery().String(), "retention_days", cfg.SessionRetentionDays)

	ticker := time.NewTicker(cfg.SweepEvery())
	defer ticker.Stop()

	sweep := func() {
		if _, err := manager.Sweep(ctx, cfg.SessionRetention()); err != nil {
			log.Warn("session sweep failed", "err", err)
		}
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
