package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_URL", "PORT", "ENV", "STATIC_DIR", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"CACHE_SIZE", "MAX_REQUEST_BYTES", "METRICS_ENABLED", "VISION_PROVIDER",
		"VISION_MODEL", "VISION_BASE_URL", "VISION_API_KEY", "GEMINI_API_KEY", "VISION_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.Host != defaultHost {
		t.Fatalf("expected default host %s, got %s", defaultHost, cfg.Host)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected dev environment by default, got %q", cfg.Env)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	if cfg.Vision.Provider != defaultVisionProvider {
		t.Fatalf("unexpected vision provider: %s", cfg.Vision.Provider)
	}
	if got := cfg.Addr(); got != "0.0.0.0:8900" {
		t.Fatalf("unexpected addr %s", got)
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_URL", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("RATE_LIMIT_RPS", "3.5")
	t.Setenv("CACHE_SIZE", "not-a-number")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Addr() != "127.0.0.1:9000" {
		t.Fatalf("expected overridden addr, got %s", cfg.Addr())
	}
	if cfg.IsDev() {
		t.Fatalf("expected non-dev environment")
	}
	if cfg.RateLimitRPS != 3.5 {
		t.Fatalf("expected rps 3.5, got %v", cfg.RateLimitRPS)
	}
	if cfg.CacheSize != defaultCacheSize {
		t.Fatalf("malformed CACHE_SIZE should keep default, got %d", cfg.CacheSize)
	}
	if cfg.Vision.APIKey != "gemini-key" {
		t.Fatalf("expected GEMINI_API_KEY fallback, got %q", cfg.Vision.APIKey)
	}

	t.Setenv("VISION_API_KEY", "vision-key")
	cfg, err = Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Vision.APIKey != "vision-key" {
		t.Fatalf("expected VISION_API_KEY to win, got %q", cfg.Vision.APIKey)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "staging")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
port: "9100"
env: production
write_timeout: 45s
enable_metrics: false
rate_limit:
  rps: 0
vision:
  provider: openai
  model: gpt-4o-mini
  timeout: 15s
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	port := "9200"
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9200" {
		t.Fatalf("expected CLI port to win, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected YAML env to beat environment, got %s", cfg.Env)
	}
	if cfg.WriteTimeout != 45*time.Second {
		t.Fatalf("unexpected write timeout %s", cfg.WriteTimeout)
	}
	if cfg.EnableMetrics {
		t.Fatalf("expected metrics disabled from YAML")
	}
	if cfg.RateLimitRPS != 0 {
		t.Fatalf("expected explicit zero rps from YAML, got %v", cfg.RateLimitRPS)
	}
	if cfg.Vision.Provider != "openai" || cfg.Vision.Model != "gpt-4o-mini" || cfg.Vision.Timeout != 15*time.Second {
		t.Fatalf("unexpected vision config: %+v", cfg.Vision)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)

	t.Run("port out of range", func(t *testing.T) {
		t.Setenv("PORT", "70000")
		if _, err := Load(nil); err == nil {
			t.Fatalf("expected error for invalid port")
		}
	})

	t.Run("bad duration in YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("idle_timeout: soon\n"), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected error for malformed duration")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
			t.Fatalf("expected error for missing config file")
		}
	})
}

func TestLoadReadsEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("VISION_MODEL")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("VISION_MODEL=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("VISION_MODEL") })

	cfg, err := Load(&CLIOverrides{EnvFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Vision.Model != "from-dotenv" {
		t.Fatalf("expected model from env file, got %s", cfg.Vision.Model)
	}
}

func TestParsePort(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		for _, raw := range []string{"8900", ":8900", " 1 "} {
			if _, err := parsePort(raw); err != nil {
				t.Fatalf("unexpected error for %q: %v", raw, err)
			}
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{"", "abc", "0", "65536"} {
			if _, err := parsePort(raw); err == nil {
				t.Fatalf("expected error for %q", raw)
			}
		}
	})
}
