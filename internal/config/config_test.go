package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(content), 0o644); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: file:test.db
jwt:
  secret: s3cret
`)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.JWT.UserExpiry != 7*24*time.Hour {
		t.Fatalf("user expiry = %v", cfg.JWT.UserExpiry)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadRejectsMissingDSN(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: s3cret
`)

	if _, errLoad := Load(path); errLoad == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestResolveConfigPathEnvFallback(t *testing.T) {
	t.Setenv("KIEMXU_CONFIG", "/etc/kiemxu/config.yaml")
	if got := ResolveConfigPath(""); got != "/etc/kiemxu/config.yaml" {
		t.Fatalf("resolve = %q", got)
	}
	if got := ResolveConfigPath("explicit.yaml"); got != "explicit.yaml" {
		t.Fatalf("resolve explicit = %q", got)
	}
}
