// seed inserts a development user for local testing.
// Idempotent: skips the insert if dev@example.com already exists.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"deviceauth/internal/config"
	"deviceauth/internal/db"
	"deviceauth/internal/security"
	"deviceauth/internal/user/domain"
	userrepo "deviceauth/internal/user/repository"
)

const (
	devUserEmail = "dev@example.com"
	devPassword  = "Passw0rd!"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer pool.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(pool)

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
	if existing != nil {
		fmt.Println("seed: dev user already exists, nothing to do")
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(devPassword))
	if err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
	u := &domain.User{
		ID:           uuid.New().String(),
		Email:        devUserEmail,
		PasswordHash: hash,
		Role:         domain.DefaultRole,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, u); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
	fmt.Printf("seed: created %s (password %s)\n", devUserEmail, devPassword)
}
