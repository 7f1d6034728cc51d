package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DB_DSN", "DATABASE_URL", "USE_DATABASE", "APP_ENV", "AI_PROVIDER", "SESSION_TTL", "CONFIG_FILE", "WORKER_CONCURRENCY", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RelationalStorage() {
		t.Fatalf("memory storage expected by default")
	}
	if cfg.AIProvider != "openai" || cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("unexpected provider defaults: %s %s", cfg.AIProvider, cfg.OpenAIModel)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected session ttl %v", cfg.SessionTTL)
	}
	if cfg.WorkerConcurrency != 2 {
		t.Fatalf("unexpected worker concurrency %d", cfg.WorkerConcurrency)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app")
	t.Setenv("DB_DSN", "")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("WORKER_CONCURRENCY", "500")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.RelationalStorage() || !cfg.Production() {
		t.Fatalf("production must use the relational store")
	}
	if cfg.DBDSN != "postgres://u:p@db:5432/app" {
		t.Fatalf("unexpected dsn %q", cfg.DBDSN)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.SessionTTL)
	}
	if cfg.WorkerConcurrency != 50 {
		t.Fatalf("worker concurrency should be capped, got %d", cfg.WorkerConcurrency)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestLoad_SecretsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.yaml")
	content := "session_secret: from-file\nopenai:\n  api_key: sk-file\ngoogle:\n  client_id: cid\n  client_secret: csecret\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionSecret != "from-file" || cfg.OpenAIAPIKey != "sk-file" {
		t.Fatalf("file values should win: %q %q", cfg.SessionSecret, cfg.OpenAIAPIKey)
	}
	if cfg.GoogleClientID != "cid" || cfg.GoogleClientSecret != "csecret" {
		t.Fatalf("google secrets not applied")
	}

	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
