package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  port: "9090"
host:
  password: "8877"
redis:
  addr: localhost:6379
  ttl: 2h
questions:
  file: questions.yaml
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Host.Password != "8877" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := TTLDuration(cfg.Redis.TTL, time.Minute); got != 2*time.Hour {
		t.Fatalf("expected 2h ttl, got %v", got)
	}
	if cfg.Questions.File != "questions.yaml" {
		t.Fatalf("expected questions file, got %q", cfg.Questions.File)
	}
	if !cfg.NewLogger().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("expected debug logging enabled")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	cases := map[string]time.Duration{
		"":      5 * time.Minute,
		"bogus": 5 * time.Minute,
		"30s":   30 * time.Second,
	}
	for raw, want := range cases {
		if got := TTLDuration(raw, 5*time.Minute); got != want {
			t.Fatalf("TTLDuration(%q) = %v, want %v", raw, got, want)
		}
	}
}
