package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}
	if cfg.EndpointURL != defaultEndpointURL {
		t.Fatalf("unexpected endpoint %q", cfg.EndpointURL)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.RequestTimeout())
	}
	if cfg.ListenAddr != ":8080" || cfg.RedisChannel != defaultRedisChannel || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
endpoint_url: http://classifier.local:8000/upload
request_timeout_seconds: 10
gallery_root: /srv/photos
redis_addr: redis:6379
`)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("CLASSIFIER_TIMEOUT_SECONDS", "5")
	t.Setenv("GALLERY_ROOT", "/data/gallery")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EndpointURL != "http://classifier.local:8000/upload" {
		t.Fatalf("unexpected endpoint %q", cfg.EndpointURL)
	}
	if cfg.RequestTimeout() != 5*time.Second {
		t.Fatalf("expected env timeout override, got %s", cfg.RequestTimeout())
	}
	if cfg.GalleryRoot != "/data/gallery" {
		t.Fatalf("expected env gallery override, got %q", cfg.GalleryRoot)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("unexpected redis addr %q", cfg.RedisAddr)
	}
}

func TestLoadRejectsRelativeEndpoint(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CLASSIFIER_ENDPOINT", "/upload")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "endpoint_url") {
		t.Fatalf("expected endpoint validation error, got %v", err)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "endpoint_url: [unterminated"))

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
