package app

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TMDB_BEARER_TOKEN", "token")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.RequestTimeout != 15*time.Second {
		t.Fatalf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.TMDB.BaseURL != "https://api.themoviedb.org/3" || cfg.TMDB.Timeout != 10*time.Second || cfg.TMDB.RateLimit != 40 {
		t.Fatalf("unexpected tmdb defaults %+v", cfg.TMDB)
	}
	if cfg.Cache.MaxEntries != 2000 || cfg.Cache.Disabled {
		t.Fatalf("unexpected cache defaults %+v", cfg.Cache)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("unexpected log defaults %+v", cfg.Log)
	}
	if !reflect.DeepEqual(cfg.Server.Origins(), []string{"*"}) {
		t.Fatalf("unexpected origins %v", cfg.Server.Origins())
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TMDB_API_KEY", " key ")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("CACHE_DISABLED", "true")
	t.Setenv("CACHE_MAX_ENTRIES", "50")
	t.Setenv("TMDB_RATE_LIMIT", "12.5")
	t.Setenv("TMDB_LANGUAGE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TMDB.APIKey != "key" || cfg.Server.Addr != ":9999" || cfg.Server.RequestTimeout != 3*time.Second {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Log.Format != "json" || !cfg.Cache.Disabled || cfg.Cache.MaxEntries != 50 || cfg.TMDB.RateLimit != 12.5 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.TMDB.Language != "en-US" {
		t.Fatalf("blank env must not mask the default, got %q", cfg.TMDB.Language)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.Server.Origins(), want) {
		t.Fatalf("origins = %v, want %v", cfg.Server.Origins(), want)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discovery.yaml")
	content := `
server:
  addr: ":7000"
tmdb:
  bearer_token: from-file
  language: de-DE
cache:
  redis_url: redis://cache:6379/0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_ADDR", ":7001")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != ":7001" {
		t.Fatalf("env should beat file, got %q", cfg.Server.Addr)
	}
	if cfg.TMDB.BearerToken != "from-file" || cfg.TMDB.Language != "de-DE" || cfg.Cache.RedisURL != "redis://cache:6379/0" {
		t.Fatalf("file not applied: %+v", cfg)
	}
	if cfg.TMDB.RateLimit != 40 {
		t.Fatalf("defaults should survive the file layer, got %v", cfg.TMDB.RateLimit)
	}
}

func TestLoadConfigRequiresCredentials(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("TMDB_BEARER_TOKEN", "")
	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "TMDB_API_KEY or TMDB_BEARER_TOKEN") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.TMDB.APIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with a key should validate: %v", err)
	}

	cfg.Log.Format = "xml"
	cfg.Cache.MaxEntries = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "log.format") || !strings.Contains(err.Error(), "cache.max_entries") {
		t.Fatalf("expected joined errors, got %v", err)
	}
}
