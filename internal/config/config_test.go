package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("Storage.Type = %q, want sqlite", cfg.Storage.Type)
	}
	if cfg.Storage.SQLite.Path != "./data/evalgate.db" {
		t.Errorf("Storage.SQLite.Path = %q, want ./data/evalgate.db", cfg.Storage.SQLite.Path)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
storage:
  type: memory
tenants:
  - id: acme
    name: Acme Corp
    api_keys:
      - key_hash: "abc123"
        description: "ci key"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %q, want memory", cfg.Storage.Type)
	}
	if len(cfg.Tenants) != 1 {
		t.Fatalf("Tenants len = %d, want 1", len(cfg.Tenants))
	}
	if cfg.Tenants[0].ID != "acme" {
		t.Errorf("Tenants[0].ID = %q, want acme", cfg.Tenants[0].ID)
	}
	if len(cfg.Tenants[0].APIKeys) != 1 || cfg.Tenants[0].APIKeys[0].KeyHash != "abc123" {
		t.Errorf("APIKeys = %+v", cfg.Tenants[0].APIKeys)
	}
}

func TestLoad_EnvVarSubstitution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
tenants:
  - id: acme
    api_keys:
      - key_hash: "${EVALGATE_TEST_KEY_HASH}"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("EVALGATE_TEST_KEY_HASH", "deadbeef")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tenants[0].APIKeys[0].KeyHash != "deadbeef" {
		t.Errorf("KeyHash = %q, want deadbeef", cfg.Tenants[0].APIKeys[0].KeyHash)
	}
}
