package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		t.Fatalf("expected development secrets")
	}
	if !cfg.RequireConfirmation || cfg.DailyWithdrawals != 2 || cfg.MinWithdrawal != 50 {
		t.Fatalf("unexpected policy defaults: %+v", cfg)
	}
	if cfg.PendingTTL != 7*24*time.Hour || cfg.Address() != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/coinvault")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("REFRESH_SECRET", "b")
	t.Setenv("ADMIN_PHONES", " 9000000001, ,9000000002")
	t.Setenv("CLAIM_REQUIRE_CONFIRMATION", "false")
	t.Setenv("CLAIM_PENDING_TTL", "0")
	t.Setenv("WITHDRAWAL_DAILY_LIMIT", "3")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AdminPhones) != 2 || cfg.AdminPhones[1] != "9000000002" {
		t.Fatalf("unexpected admin phones: %v", cfg.AdminPhones)
	}
	if cfg.RequireConfirmation || cfg.PendingTTL != 0 || cfg.DailyWithdrawals != 3 || cfg.IdempotencyTTL != time.Minute {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRequiresBackendsOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing DATABASE_URL error")
	}

	t.Setenv("APP_ENV", "development")
	t.Setenv("WITHDRAWAL_MIN_AMOUNT", "fifty")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
