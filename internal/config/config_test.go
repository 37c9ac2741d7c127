package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("database-dsn: \"data/app.db\"\njwt:\n  secret: \"abc\"\n")
	if errWrite := os.WriteFile(path, content, 0600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.DatabaseDSN != "data/app.db" {
		t.Fatalf("unexpected dsn: %q", cfg.DatabaseDSN)
	}
	if cfg.JWT.Expiry() != DefaultJWTExpiry {
		t.Fatalf("expected default jwt expiry, got %v", cfg.JWT.Expiry())
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte("database-dsn: \"data/app.db\"\n"), 0600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	t.Setenv("DASHSYNC_DATABASE_DSN", ":memory:")
	t.Setenv("DASHSYNC_LISTEN_ADDR", ":9000")

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.DatabaseDSN != ":memory:" {
		t.Fatalf("env dsn must win, got %q", cfg.DatabaseDSN)
	}
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("env listen addr must win, got %q", cfg.ListenAddr)
	}
}

func TestLoadMissingFileRequiresEnvDSN(t *testing.T) {
	if _, errLoad := Load(filepath.Join(t.TempDir(), "absent.yaml")); errLoad == nil {
		t.Fatal("expected missing dsn to fail")
	}

	t.Setenv("DASHSYNC_DATABASE_DSN", ":memory:")
	cfg, errLoad := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if errLoad != nil {
		t.Fatalf("load env-only: %v", errLoad)
	}
	if cfg.DatabaseDSN != ":memory:" {
		t.Fatalf("unexpected dsn: %q", cfg.DatabaseDSN)
	}
}
