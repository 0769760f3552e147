// Package catalog is the TMDB v3 client: authenticated reads with a
// freshness cache, request coalescing, an outbound rate limit and a circuit
// breaker.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"watchwise/discoveryservice/internal/domain"
	"watchwise/discoveryservice/internal/metrics"
	"watchwise/discoveryservice/internal/telemetry"
)

const (
	defaultBaseURL      = "https://api.themoviedb.org/3"
	defaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
	defaultLanguage     = "en-US"
	defaultTimeout      = 10 * time.Second
	defaultRateLimit    = 40
	maxBodyBytes        = 2 << 20
	maxErrorBodyBytes   = 1024
	breakerName         = "tmdb"
)

// Freshness windows per endpoint family.
const (
	ttlMultiSearch   = 30 * time.Minute
	ttlKeywordSearch = 6 * time.Hour
	ttlRelated       = 6 * time.Hour
	ttlDiscover      = 12 * time.Hour
	ttlDetails       = 12 * time.Hour
	ttlTVKeywords    = 24 * time.Hour
	ttlGenres        = 24 * time.Hour
)

var (
	ErrMissingCredentials = errors.New("tmdb is not configured: set TMDB_BEARER_TOKEN or TMDB_API_KEY")
	ErrUnavailable        = errors.New("tmdb temporarily unavailable")
)

// StatusError is a non-2xx answer from TMDB.
type StatusError struct {
	Status  int
	Path    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb HTTP %d on %s: %s", e.Status, e.Path, e.Message)
}

// IsNotFound reports whether err carries an upstream 404.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound
}

type Config struct {
	APIKey          string
	BearerToken     string
	BaseURL         string
	ImageBaseURL    string
	Language        string
	Timeout         time.Duration
	RateLimit       float64
	HTTPClient      *http.Client
	Redis           *redis.Client
	CacheDisabled   bool
	CacheMaxEntries int
	Logger          *slog.Logger
}

type Client struct {
	apiKey       string
	bearerToken  string
	baseURL      string
	imageBaseURL string
	language     string
	http         *http.Client
	timeout      time.Duration
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[[]byte]
	group        singleflight.Group
	memory       *MemoryCache
	redis        *RedisCache
	logger       *slog.Logger
	tracer       trace.Tracer
}

// NewClient validates credentials before anything touches the network.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	bearer := strings.TrimSpace(cfg.BearerToken)
	if apiKey == "" && bearer == "" {
		return nil, ErrMissingCredentials
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	imageBaseURL := strings.TrimSpace(cfg.ImageBaseURL)
	if imageBaseURL == "" {
		imageBaseURL = defaultImageBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = defaultRateLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		apiKey:       apiKey,
		bearerToken:  bearer,
		baseURL:      strings.TrimRight(baseURL, "/"),
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		language:     language,
		http:         httpClient,
		timeout:      timeout,
		limiter:      rate.NewLimiter(rate.Limit(rps), limiterBurst(rps)),
		logger:       logger,
		tracer:       telemetry.Tracer(),
	}
	c.breaker = newBreaker(logger)
	if !cfg.CacheDisabled {
		c.memory = NewMemoryCache(cfg.CacheMaxEntries)
		if cfg.Redis != nil {
			c.redis = NewRedisCache(cfg.Redis)
		}
	}
	return c, nil
}

// limiterBurst lets a fractional rate still admit one request at a time.
func limiterBurst(rps float64) int {
	return max(1, int(math.Ceil(rps)))
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// Client errors are answers, not outages.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.Status < 500 && statusErr.Status != http.StatusTooManyRequests
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			logger.Warn("circuit breaker state change", slog.String("name", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// PosterURL builds an image URL, or "" for titles without a poster.
func (c *Client) PosterURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.imageBaseURL + path
}

// Ping checks the shared cache, when one is configured.
func (c *Client) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx)
}

func (c *Client) MovieDetails(ctx context.Context, id int) (MovieDetails, error) {
	var out MovieDetails
	params := c.localized(url.Values{"append_to_response": {"keywords"}})
	err := c.get(ctx, "movie_details", "/movie/"+strconv.Itoa(id), params, ttlDetails, &out)
	return out, err
}

func (c *Client) TVDetails(ctx context.Context, id int) (TVDetails, error) {
	var out TVDetails
	err := c.get(ctx, "tv_details", "/tv/"+strconv.Itoa(id), c.localized(url.Values{}), ttlDetails, &out)
	return out, err
}

func (c *Client) TVKeywords(ctx context.Context, id int) ([]Keyword, error) {
	var out keywordsResponse
	err := c.get(ctx, "tv_keywords", "/tv/"+strconv.Itoa(id)+"/keywords", url.Values{}, ttlTVKeywords, &out)
	return out.Results, err
}

func (c *Client) Recommendations(ctx context.Context, mediaType domain.MediaType, id int) ([]ListItem, error) {
	return c.related(ctx, "recommendations", mediaType, id)
}

func (c *Client) Similar(ctx context.Context, mediaType domain.MediaType, id int) ([]ListItem, error) {
	return c.related(ctx, "similar", mediaType, id)
}

func (c *Client) related(ctx context.Context, kind string, mediaType domain.MediaType, id int) ([]ListItem, error) {
	var out listResponse
	path := "/" + string(mediaType) + "/" + strconv.Itoa(id) + "/" + kind
	err := c.get(ctx, kind, path, c.localized(url.Values{"page": {"1"}}), ttlRelated, &out)
	return out.Results, err
}

func (c *Client) Discover(ctx context.Context, q DiscoverQuery) ([]ListItem, error) {
	if !q.MediaType.Valid() {
		return nil, domain.ErrInvalidMediaType
	}
	params := c.localized(url.Values{
		"include_adult": {"false"},
		"page":          {"1"},
	})
	if len(q.GenreIDs) > 0 {
		params.Set("with_genres", joinIDs(q.GenreIDs))
	}
	if len(q.KeywordIDs) > 0 {
		params.Set("with_keywords", joinIDs(q.KeywordIDs))
	}
	if q.SortBy != "" {
		params.Set("sort_by", q.SortBy)
	}
	if q.MinVoteCount > 0 {
		params.Set("vote_count.gte", strconv.Itoa(q.MinVoteCount))
	}
	var out listResponse
	err := c.get(ctx, "discover_"+string(q.MediaType), "/discover/"+string(q.MediaType), params, ttlDiscover, &out)
	return out.Results, err
}

// SearchMulti returns movies, shows and people matching query.
func (c *Client) SearchMulti(ctx context.Context, query string) ([]ListItem, error) {
	params := c.localized(url.Values{
		"query":         {strings.TrimSpace(query)},
		"include_adult": {"false"},
		"page":          {"1"},
	})
	var out listResponse
	err := c.get(ctx, "search_multi", "/search/multi", params, ttlMultiSearch, &out)
	return out.Results, err
}

func (c *Client) SearchKeywords(ctx context.Context, query string) ([]Keyword, error) {
	params := url.Values{
		"query": {strings.TrimSpace(query)},
		"page":  {"1"},
	}
	var out keywordsResponse
	err := c.get(ctx, "search_keyword", "/search/keyword", params, ttlKeywordSearch, &out)
	return out.Results, err
}

func (c *Client) Genres(ctx context.Context, mediaType domain.MediaType) ([]Genre, error) {
	var out genresResponse
	err := c.get(ctx, "genres", "/genre/"+string(mediaType)+"/list", c.localized(url.Values{}), ttlGenres, &out)
	return out.Genres, err
}

func (c *Client) localized(params url.Values) url.Values {
	params.Set("language", c.language)
	return params
}

// get serves path from cache when fresh, otherwise fetches it once for all
// concurrent callers and stores the raw payload. The shared fetch runs
// detached from any single caller; each caller only waits on its own ctx.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, ttl time.Duration, out any) error {
	// Encode sorts keys, so equal parameter sets share a key.
	key := path + "?" + params.Encode()

	if data, ok := c.cacheLookup(ctx, key, ttl); ok {
		if err := json.Unmarshal(data, out); err == nil {
			return nil
		}
	}

	detached := context.WithoutCancel(ctx)
	results := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(detached, c.timeout)
		defer cancel()
		data, err := c.fetch(fetchCtx, endpoint, path, params)
		if err != nil {
			return nil, err
		}
		c.cacheStore(fetchCtx, key, data, ttl)
		return data, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-results:
	}
	if res.Err != nil {
		return res.Err
	}
	if err := json.Unmarshal(res.Val.([]byte), out); err != nil {
		return fmt.Errorf("decode tmdb %s: %w", path, err)
	}
	return nil
}

func (c *Client) cacheLookup(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	if c.memory == nil {
		return nil, false
	}
	if data, ok := c.memory.Get(key); ok {
		metrics.CacheHitsTotal.Inc()
		return data, true
	}
	if c.redis != nil {
		data, remaining, found, err := c.redis.Get(ctx, key)
		if err != nil {
			c.logger.Debug("redis cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		if found {
			metrics.CacheHitsTotal.Inc()
			c.memory.Set(key, data, promotionTTL(remaining, ttl))
			return data, true
		}
	}
	metrics.CacheMissesTotal.Inc()
	return nil, false
}

// promotionTTL is how long a shared-cache hit may live in memory: whatever
// is left of its shared lifetime, never more than the endpoint window.
// Keys without an expiry get the full window.
func promotionTTL(remaining, ttl time.Duration) time.Duration {
	if remaining <= 0 {
		if remaining == redisNoExpiry {
			return ttl
		}
		return 0
	}
	return min(remaining, ttl)
}

func (c *Client) cacheStore(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if c.memory == nil {
		return
	}
	c.memory.Set(key, data, ttl)
	if c.redis != nil {
		if err := c.redis.Set(ctx, key, data, ttl); err != nil {
			c.logger.Debug("redis cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

func (c *Client) fetch(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "tmdb."+endpoint, trace.WithAttributes(attribute.String("tmdb.path", path)))
	defer span.End()

	start := time.Now()
	data, err := c.breaker.Execute(func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.do(ctx, path, params)
	})
	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %s", ErrUnavailable, path)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, statusLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{Status: resp.StatusCode, Path: path, Message: upstreamMessage(body)}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// upstreamMessage prefers TMDB's status_message over the raw body.
func upstreamMessage(body []byte) string {
	var payload struct {
		StatusMessage string `json:"status_message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.StatusMessage != "" {
		return payload.StatusMessage
	}
	return strings.TrimSpace(string(body))
}

func statusLabel(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "200"
	case errors.As(err, &statusErr):
		return strconv.Itoa(statusErr.Status)
	case errors.Is(err, ErrUnavailable):
		return "circuit_open"
	default:
		return "error"
	}
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
