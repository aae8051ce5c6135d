package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Storage.Driver != "sqlite" || cfg.Storage.Retries != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("token ttl = %v", cfg.Auth.TokenTTL)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`addr: ":9090"
storage:
  path: /tmp/board.db
  backoff: 250ms
assistant:
  provider: openai
  model: gpt-4o-mini
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WORKFLOW_ASSISTANT_API_KEY", "sk-test")
	t.Setenv("WORKFLOW_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.Storage.Path != "/tmp/board.db" || cfg.Storage.Backoff != 250*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Assistant.Provider != "openai" || cfg.Assistant.APIKey != "sk-test" {
		t.Fatalf("assistant = %+v", cfg.Assistant)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("WORKFLOW_STORAGE_DRIVER", "postgres")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("WORKFLOW_CONFIG", "")
	if got := DefaultPath(); got != "config.yaml" {
		t.Fatalf("DefaultPath = %q", got)
	}
	t.Setenv("WORKFLOW_CONFIG", "/etc/workflow.yaml")
	if got := DefaultPath(); got != "/etc/workflow.yaml" {
		t.Fatalf("DefaultPath = %q", got)
	}
}
