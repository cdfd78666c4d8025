package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
ncbi:
  api_key: test-key
  email: dev@example.org
  rate_limit: 8.0
cache:
  backend: sqlite
  path: /tmp/pubmed-cache.db
  ttl_seconds: 600
  max_size: 500
retry:
  max_attempts: 5
  initial_backoff_ms: 250
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NCBI.APIKey != "test-key" || cfg.NCBI.Email != "dev@example.org" {
		t.Errorf("unexpected NCBI config %+v", cfg.NCBI)
	}
	if cfg.NCBI.RateLimit != 8.0 {
		t.Errorf("rate limit = %v", cfg.NCBI.RateLimit)
	}
	if cfg.Cache.Backend != "sqlite" || cfg.Cache.TTLSeconds != 600 || cfg.Cache.MaxSize != 500 {
		t.Errorf("unexpected cache config %+v", cfg.Cache)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.InitialBackoffMs != 250 {
		t.Errorf("unexpected retry config %+v", cfg.Retry)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "ncbi:\n  email: dev@example.org\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NCBI.RateLimit != 3.0 {
		t.Errorf("anonymous rate limit = %v, want 3.0", cfg.NCBI.RateLimit)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.TTLSeconds != 300 || cfg.Cache.MaxSize != 1000 {
		t.Errorf("cache defaults = %+v", cfg.Cache)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.InitialBackoffMs != 1000 {
		t.Errorf("retry defaults = %+v", cfg.Retry)
	}
}

func TestLoadKeyedRateDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, "ncbi:\n  api_key: abc\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NCBI.RateLimit != 10.0 {
		t.Errorf("keyed rate limit = %v, want 10.0", cfg.NCBI.RateLimit)
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("PUBMED_TEST_KEY", "expanded-secret")
	cfg, err := Load(writeConfig(t, "ncbi:\n  api_key: ${PUBMED_TEST_KEY}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NCBI.APIKey != "expanded-secret" {
		t.Errorf("api key = %q, want expanded env value", cfg.NCBI.APIKey)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"sqlite without path",
			"cache:\n  backend: sqlite\n",
			"path is required",
		},
		{
			"unknown backend",
			"cache:\n  backend: redis\n",
			"unknown cache backend",
		},
		{
			"high rate without key",
			"ncbi:\n  rate_limit: 20\n",
			"requires an NCBI api_key",
		},
	}
	for _, tt := range tests {
		_, err := Load(writeConfig(t, tt.content))
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: err = %v, want containing %q", tt.name, err, tt.wantErr)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Cache.Backend != "memory" || cfg.NCBI.RateLimit != 3.0 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "ncbi:\n  rate_limit: 3.0\n")

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, 50*time.Millisecond, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("ncbi:\n  api_key: k\n  rate_limit: 9.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.NCBI.RateLimit != 9.0 {
			t.Errorf("reloaded rate limit = %v, want 9.0", cfg.NCBI.RateLimit)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherKeepsConfigOnBadReload(t *testing.T) {
	path := writeConfig(t, "ncbi:\n  rate_limit: 3.0\n")

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, 50*time.Millisecond, func(cfg *Config) {
		reloaded <- cfg
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Invalid config: the handler must not fire.
	if err := os.WriteFile(path, []byte("cache:\n  backend: redis\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
		t.Error("handler fired for an invalid config")
	case <-time.After(500 * time.Millisecond):
	}
}
