package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	apihttp "watchwise/discoveryservice/internal/api/http"
	"watchwise/discoveryservice/internal/app"
	"watchwise/discoveryservice/internal/catalog"
	"watchwise/discoveryservice/internal/metrics"
	"watchwise/discoveryservice/internal/recommend"
	"watchwise/discoveryservice/internal/search"
	"watchwise/discoveryservice/internal/telemetry"
)

const serviceName = "discovery"

var version = "dev"

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("configuration error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := newLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), serviceName, version)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.Server.Addr),
		slog.String("logLevel", cfg.Log.Level),
		slog.String("logFormat", cfg.Log.Format),
		slog.Duration("requestTimeout", cfg.Server.RequestTimeout),
		slog.String("tmdbBaseURL", cfg.TMDB.BaseURL),
		slog.String("tmdbLanguage", cfg.TMDB.Language),
		slog.Bool("hasTMDBKey", cfg.TMDB.APIKey != ""),
		slog.Bool("hasTMDBToken", cfg.TMDB.BearerToken != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.Cache.RedisURL) != ""),
		slog.Bool("cacheDisabled", cfg.Cache.Disabled),
	)

	client, err := catalog.NewClient(catalog.Config{
		APIKey:          cfg.TMDB.APIKey,
		BearerToken:     cfg.TMDB.BearerToken,
		BaseURL:         cfg.TMDB.BaseURL,
		ImageBaseURL:    cfg.TMDB.ImageBaseURL,
		Language:        cfg.TMDB.Language,
		Timeout:         cfg.TMDB.Timeout,
		RateLimit:       cfg.TMDB.RateLimit,
		Redis:           buildRedisClient(cfg, logger),
		CacheDisabled:   cfg.Cache.Disabled,
		CacheMaxEntries: cfg.Cache.MaxEntries,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("catalog client init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handler := apihttp.NewServer(
		search.NewService(client, logger),
		recommend.NewService(client, logger),
		apihttp.WithLogger(logger),
		apihttp.WithHealthChecker(client),
		apihttp.WithCORSOrigins(cfg.Server.Origins()),
		apihttp.WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		apihttp.WithRequestTimeout(cfg.Server.RequestTimeout),
	).Handler()

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("discovery service started",
		slog.String("addr", cfg.Server.Addr),
		slog.String("version", version),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("discovery service stopped")
}

// buildRedisClient returns nil when Redis is unset, unparsable or
// unreachable; the in-memory cache still serves in that case.
func buildRedisClient(cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.Cache.RedisURL)
	if redisURL == "" || cfg.Cache.Disabled {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", opts.Addr))
	return client
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLogLevel(levelRaw)}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
