package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.HTTPAddr)
	}
	if cfg.MongoURI != "" {
		t.Fatalf("expected empty default mongo uri, got %s", cfg.MongoURI)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("unexpected default access ttl: %s", cfg.AccessTTL)
	}
	if !cfg.CookieSecure {
		t.Fatalf("cookies must default to secure")
	}
	if cfg.MaxBodyBytes != 16<<10 {
		t.Fatalf("unexpected default body limit: %d", cfg.MaxBodyBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TASKHIVE_HTTP_ADDR", ":18080")
	t.Setenv("TASKHIVE_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("TASKHIVE_MONGO_DATABASE", "taskhive_test")
	t.Setenv("TASKHIVE_ACCESS_SECRET", "a-secret")
	t.Setenv("TASKHIVE_REFRESH_SECRET", "r-secret")
	t.Setenv("TASKHIVE_ACCESS_TTL", "30m")
	t.Setenv("TASKHIVE_REFRESH_TTL", "48h")
	t.Setenv("TASKHIVE_SESSION_SECRET", "s-secret")
	t.Setenv("TASKHIVE_COOKIE_SECURE", "false")

	cfg := Load()
	if cfg.HTTPAddr != ":18080" {
		t.Fatalf("expected addr override, got %s", cfg.HTTPAddr)
	}
	if cfg.MongoURI != "mongodb://localhost:27017" || cfg.MongoDatabase != "taskhive_test" {
		t.Fatalf("expected mongo overrides, got %s/%s", cfg.MongoURI, cfg.MongoDatabase)
	}
	if cfg.AccessSecret != "a-secret" || cfg.RefreshSecret != "r-secret" {
		t.Fatalf("expected secret overrides")
	}
	if cfg.AccessTTL != 30*time.Minute || cfg.RefreshTTL != 48*time.Hour {
		t.Fatalf("expected ttl overrides, got %s/%s", cfg.AccessTTL, cfg.RefreshTTL)
	}
	if cfg.SessionSecret != "s-secret" {
		t.Fatalf("expected session secret override")
	}
	if cfg.CookieSecure {
		t.Fatalf("expected cookie_secure=false")
	}
}
