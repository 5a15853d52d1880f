package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected default address %q", cfg.HTTPAddr)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected default session TTL %v", cfg.SessionTTL)
	}
	if cfg.UseRelay() {
		t.Fatal("relay must be off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CONSOLE_HTTP_ADDR", ":9090")
	t.Setenv("CONSOLE_SESSION_TTL", "1h")
	t.Setenv("CONSOLE_MAIL_RELAY_URL", "https://relay.example.com/send")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected overridden address, got %q", cfg.HTTPAddr)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("expected overridden TTL, got %v", cfg.SessionTTL)
	}
	if !cfg.UseRelay() {
		t.Fatal("expected relay enabled")
	}
	if cfg.UseSMTP() {
		t.Fatal("relay must take precedence over SMTP")
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("CONSOLE_SESSION_TTL", "-1h")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a negative TTL")
	}
}
