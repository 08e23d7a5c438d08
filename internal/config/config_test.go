package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_ACCESS_SECRET") {
		t.Fatalf("missing access secret: got %v, want JWT_ACCESS_SECRET error", err)
	}

	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_REFRESH_SECRET") {
		t.Fatalf("missing refresh secret: got %v, want JWT_REFRESH_SECRET error", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.JWTAccessExpiry != "15m" || cfg.JWTRefreshExpiry != "7d" {
		t.Errorf("expiries = %q/%q, want 15m/7d", cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.SessionRetentionDays != 30 {
		t.Errorf("SessionRetentionDays = %d, want 30", cfg.SessionRetentionDays)
	}
	if cfg.RequireLiveSession {
		t.Error("RequireLiveSession should default to false")
	}
	if got := cfg.SessionRetention(); got != 30*24*time.Hour {
		t.Errorf("SessionRetention = %v, want 720h", got)
	}
	if got := cfg.SweepEvery(); got != time.Hour {
		t.Errorf("SweepEvery = %v, want 1h", got)
	}
	if cfg.CORSOrigins() != nil {
		t.Errorf("CORSOrigins = %v, want nil", cfg.CORSOrigins())
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("SESSION_RETENTION_DAYS", "7")
	t.Setenv("SWEEP_INTERVAL", "30m")
	t.Setenv("AUTH_REQUIRE_LIVE_SESSION", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if got := cfg.SessionRetention(); got != 7*24*time.Hour {
		t.Errorf("SessionRetention = %v, want 168h", got)
	}
	if got := cfg.SweepEvery(); got != 30*time.Minute {
		t.Errorf("SweepEvery = %v, want 30m", got)
	}
	if !cfg.RequireLiveSession {
		t.Error("RequireLiveSession = false, want true")
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	got := cfg.CORSOrigins()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("CORSOrigins = %v, want %v", got, want)
	}
}

func TestLoadRejectsBadBcryptCost(t *testing.T) {
	setRequired(t)
	t.Setenv("BCRYPT_COST", "50")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "BCRYPT_COST") {
		t.Fatalf("got %v, want BCRYPT_COST error", err)
	}
}

func TestSweepEveryFallsBack(t *testing.T) {
	cfg := &Config{SweepInterval: "not-a-duration"}
	if got := cfg.SweepEvery(); got != time.Hour {
		t.Fatalf("SweepEvery = %v, want 1h fallback", got)
	}
}
