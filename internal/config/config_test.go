package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load server: %v", err)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("addr: got %q", cfg.Addr())
	}
	if cfg.OIDCEnabled() {
		t.Fatalf("oidc should be off without an issuer")
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level: got %q", cfg.Log.Level)
	}
}

func TestLoadClientOverrides(t *testing.T) {
	t.Setenv("HEARTH_SERVER_URL", "http://inventory.test")
	t.Setenv("HEARTH_OFFLINE", "true")
	t.Setenv("HEARTH_CACHE_ITEMS_RECENCY", "7m")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("load client: %v", err)
	}
	if cfg.ServerURL != "http://inventory.test" {
		t.Fatalf("server url: got %q", cfg.ServerURL)
	}
	if !cfg.Offline {
		t.Fatalf("offline flag not parsed")
	}
	if cfg.ItemsRecency != 7*time.Minute {
		t.Fatalf("items recency: got %v", cfg.ItemsRecency)
	}
	if cfg.ContainersRecency != 0 {
		t.Fatalf("unset recency should stay zero, got %v", cfg.ContainersRecency)
	}
	if cfg.Log.Format != "console" {
		t.Fatalf("log format: got %q", cfg.Log.Format)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("HEARTH_CACHE_QUOTA_BYTES", "lots")

	_, err := LoadClient()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
