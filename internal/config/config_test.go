package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if cfg.Server.Port != "3000" {
		t.Errorf("expected default port 3000, got %s", cfg.Server.Port)
	}
	if cfg.Source.RefreshInterval != time.Hour {
		t.Errorf("expected default refresh interval 1h, got %s", cfg.Source.RefreshInterval)
	}
	if cfg.Table.DefaultPageSize != 50 {
		t.Errorf("expected default page size 50, got %d", cfg.Table.DefaultPageSize)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected memory store by default, got %s", cfg.Store.Driver)
	}
	if !cfg.IsDevelopment() {
		t.Error("default environment should be development")
	}
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("SOURCE_KIND", "file")
	t.Setenv("SOURCE_FILE", "/tmp/seal.json")
	t.Setenv("REFRESH_INTERVAL", "15m")
	t.Setenv("PRECOMPUTE_RATIOS", "false")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CHAT_ID", "42")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if cfg.Source.Kind != "file" || cfg.Source.File != "/tmp/seal.json" {
		t.Errorf("unexpected source config: %+v", cfg.Source)
	}
	if cfg.Source.RefreshInterval != 15*time.Minute {
		t.Errorf("expected 15m, got %s", cfg.Source.RefreshInterval)
	}
	if cfg.Table.PrecomputeRatios {
		t.Error("PRECOMPUTE_RATIOS=false should disable eager ratios")
	}
	if cfg.IsDevelopment() {
		t.Error("production should not be development")
	}
	if cfg.Telegram.ChatID != 42 {
		t.Errorf("expected chat id 42, got %d", cfg.Telegram.ChatID)
	}
}

func TestNewRejectsBadDuration(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL", "soon")

	if _, err := New(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
