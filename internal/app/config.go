package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides where the optional YAML file is read from.
const ConfigPathEnvVar = "CONFIG_PATH"

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
	TMDB   TMDBConfig   `koanf:"tmdb"`
	Cache  CacheConfig  `koanf:"cache"`
}

type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	CORSOrigins    string        `koanf:"cors_origins"`
	RateLimitRPS   float64       `koanf:"rate_limit_rps"`
	RateLimitBurst int           `koanf:"rate_limit_burst"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type TMDBConfig struct {
	APIKey       string        `koanf:"api_key"`
	BearerToken  string        `koanf:"bearer_token"`
	BaseURL      string        `koanf:"base_url"`
	ImageBaseURL string        `koanf:"image_base_url"`
	Language     string        `koanf:"language"`
	Timeout      time.Duration `koanf:"timeout"`
	RateLimit    float64       `koanf:"rate_limit"`
}

type CacheConfig struct {
	RedisURL   string `koanf:"redis_url"`
	Disabled   bool   `koanf:"disabled"`
	MaxEntries int    `koanf:"max_entries"`
}

var envMappings = map[string]string{
	"HTTP_ADDR":           "server.addr",
	"REQUEST_TIMEOUT":     "server.request_timeout",
	"CORS_ORIGINS":        "server.cors_origins",
	"RATE_LIMIT_RPS":      "server.rate_limit_rps",
	"RATE_LIMIT_BURST":    "server.rate_limit_burst",
	"LOG_LEVEL":           "log.level",
	"LOG_FORMAT":          "log.format",
	"TMDB_API_KEY":        "tmdb.api_key",
	"TMDB_BEARER_TOKEN":   "tmdb.bearer_token",
	"TMDB_BASE_URL":       "tmdb.base_url",
	"TMDB_IMAGE_BASE_URL": "tmdb.image_base_url",
	"TMDB_LANGUAGE":       "tmdb.language",
	"TMDB_TIMEOUT":        "tmdb.timeout",
	"TMDB_RATE_LIMIT":     "tmdb.rate_limit",
	"REDIS_URL":           "cache.redis_url",
	"CACHE_DISABLED":      "cache.disabled",
	"CACHE_MAX_ENTRIES":   "cache.max_entries",
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 15 * time.Second,
			CORSOrigins:    "*",
			RateLimitRPS:   50,
			RateLimitBurst: 100,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		TMDB: TMDBConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p/w500",
			Language:     "en-US",
			Timeout:      10 * time.Second,
			RateLimit:    40,
		},
		Cache: CacheConfig{MaxEntries: 2000},
	}
}

// LoadConfig layers struct defaults, an optional YAML file and the
// environment, in that order, then validates the result.
func LoadConfig() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.TMDB.APIKey = strings.TrimSpace(cfg.TMDB.APIKey)
	cfg.TMDB.BearerToken = strings.TrimSpace(cfg.TMDB.BearerToken)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envTransform maps known variables onto config keys. Unknown or blank
// variables are skipped so they never mask a file or default value.
func envTransform(key, value string) (string, any) {
	mapped, ok := envMappings[key]
	if !ok || strings.TrimSpace(value) == "" {
		return "", nil
	}
	return mapped, strings.TrimSpace(value)
}

func findConfigFile() string {
	if path := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (c Config) Validate() error {
	var errs []error
	if c.TMDB.APIKey == "" && c.TMDB.BearerToken == "" {
		errs = append(errs, errors.New("TMDB_API_KEY or TMDB_BEARER_TOKEN is required"))
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, errors.New("server rate limit must not be negative"))
	}
	if c.TMDB.Timeout <= 0 {
		errs = append(errs, errors.New("tmdb.timeout must be positive"))
	}
	if c.TMDB.RateLimit <= 0 {
		errs = append(errs, errors.New("tmdb.rate_limit must be positive"))
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, errors.New("cache.max_entries must be positive"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Origins splits the comma-separated CORS origin list.
func (c ServerConfig) Origins() []string {
	var out []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
