package apihttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"watchwise/discoveryservice/internal/catalog"
	"watchwise/discoveryservice/internal/domain"
	"watchwise/discoveryservice/internal/traits"
)

const (
	maxQueryLength = 500
	serviceName    = "discovery"
)

type SearchService interface {
	Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error)
}

type RecommendService interface {
	Recommend(ctx context.Context, req domain.RecommendRequest) (domain.RecommendResponse, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	search         SearchService
	recommend      RecommendService
	health         HealthChecker
	logger         *slog.Logger
	corsOrigins    []string
	rateLimitRPS   float64
	rateLimitBurst int
	requestTimeout time.Duration
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithHealthChecker(checker HealthChecker) ServerOption {
	return func(s *Server) {
		s.health = checker
	}
}

func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithRateLimit sets the global token bucket. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateLimitRPS = rps
		s.rateLimitBurst = burst
	}
}

func WithRequestTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.requestTimeout = timeout
	}
}

func NewServer(searchService SearchService, recommendService RecommendService, options ...ServerOption) *Server {
	server := &Server{
		search:         searchService,
		recommend:      recommendService,
		logger:         slog.Default(),
		rateLimitRPS:   50,
		rateLimitBurst: 100,
		requestTimeout: 15 * time.Second,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		rateLimitMiddleware(s.rateLimitRPS, s.rateLimitBurst),
		metricsMiddleware,
		corsMiddleware(s.corsOrigins),
		tracingMiddleware(serviceName),
		timeoutMiddleware(s.requestTimeout),
		loggingMiddleware(s.logger),
	)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Post("/recommendations", s.handleRecommendations)
		r.Get("/traits", s.handleTraits)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	payload := map[string]any{"timestamp": time.Now().UTC()}
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
			payload["error"] = err.Error()
		}
	}
	payload["status"] = status
	writeJSON(w, code, payload)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	params := r.URL.Query()
	query := strings.TrimSpace(params.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", domain.ErrEmptyQuery.Error())
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	mode, err := domain.ParseSearchMode(params.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	response, err := s.search.Search(r.Context(), domain.SearchRequest{
		Query:         query,
		Mode:          mode,
		AnimationOnly: parseOptionalBool(params.Get("animation")),
	})
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("query", truncate(query, 80)),
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()),
		)
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if s.recommend == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "recommendation service is not configured")
		return
	}

	req, err := decodeRecommendBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	response, err := s.recommend.Recommend(r.Context(), req)
	if err != nil {
		s.logger.Warn("recommendation request failed",
			slog.Int("seedId", req.SeedID),
			slog.String("seedType", string(req.SeedType)),
			slog.String("error", err.Error()),
		)
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleTraits(w http.ResponseWriter, _ *http.Request) {
	all := traits.All()
	refs := make([]domain.TraitRef, 0, len(all))
	for _, trait := range all {
		refs = append(refs, traits.Ref(trait.ID))
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsInputError(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case catalog.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body.
		w.WriteHeader(499)
	default:
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
