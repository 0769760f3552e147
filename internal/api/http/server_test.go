package apihttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"watchwise/discoveryservice/internal/catalog"
	"watchwise/discoveryservice/internal/domain"
	"watchwise/discoveryservice/internal/metrics"
)

type fakeSearchService struct {
	lastRequest domain.SearchRequest
	callCount   int
	err         error
	panics      bool
}

func (f *fakeSearchService) Search(_ context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	f.callCount++
	f.lastRequest = req
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return domain.SearchResponse{}, f.err
	}
	return domain.SearchResponse{
		Query:       req.Query,
		Mode:        req.Mode,
		Results:     []domain.SearchResult{{ID: 597, MediaType: domain.MediaMovie, Title: "Titanic"}},
		Suggestions: []string{"Titanic"},
	}, nil
}

type fakeRecommendService struct {
	lastRequest domain.RecommendRequest
	callCount   int
	err         error
}

func (f *fakeRecommendService) Recommend(_ context.Context, req domain.RecommendRequest) (domain.RecommendResponse, error) {
	f.callCount++
	f.lastRequest = req
	if f.err != nil {
		return domain.RecommendResponse{}, f.err
	}
	return domain.RecommendResponse{
		Seed:  domain.SeedRef{ID: req.SeedID, MediaType: req.SeedType, Title: "Titanic"},
		Items: []domain.RecommendationItem{},
	}, nil
}

type fakeChecker struct{ err error }

func (f fakeChecker) Ping(context.Context) error { return f.err }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(search *fakeSearchService, recommend *fakeRecommendService, opts ...ServerOption) http.Handler {
	opts = append([]ServerOption{WithLogger(quietLogger()), WithRateLimit(0, 0)}, opts...)
	return NewServer(search, recommend, opts...).Handler()
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return env
}

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func get(handler http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestSearchPassesParams(t *testing.T) {
	search := &fakeSearchService{}
	rec := get(newTestServer(search, nil), "/api/search?q=%20spirited%20away%20&mode=THEMES&animation=1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if search.lastRequest.Query != "spirited away" || search.lastRequest.Mode != domain.SearchModeThemes || !search.lastRequest.AnimationOnly {
		t.Fatalf("unexpected request %+v", search.lastRequest)
	}
	var resp domain.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Titanic" || resp.Mode != domain.SearchModeThemes {
		t.Fatalf("unexpected response %+v", resp)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		target string
	}{
		{"missing query", "/api/search"},
		{"blank query", "/api/search?q=%20%20"},
		{"unknown mode", "/api/search?q=titanic&mode=fuzzy"},
		{"too long", "/api/search?q=" + strings.Repeat("a", maxQueryLength+1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			search := &fakeSearchService{}
			rec := get(newTestServer(search, nil), tc.target)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if env := decodeError(t, rec); env.Error.Code != "invalid_request" {
				t.Fatalf("unexpected envelope %+v", env)
			}
			if search.callCount != 0 {
				t.Fatalf("bad input reached the service")
			}
		})
	}
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"input", fmt.Errorf("wrap: %w", domain.ErrInvalidMode), http.StatusBadRequest, "invalid_request"},
		{"upstream not found", fmt.Errorf("seed: %w", &catalog.StatusError{Status: 404, Path: "/movie/1", Message: "missing"}), http.StatusNotFound, "not_found"},
		{"upstream failure", &catalog.StatusError{Status: 500, Path: "/search/multi", Message: "oops"}, http.StatusBadGateway, "upstream_error"},
		{"breaker open", catalog.ErrUnavailable, http.StatusBadGateway, "upstream_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(newTestServer(&fakeSearchService{err: tc.err}, nil), "/api/search?q=titanic")
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if env := decodeError(t, rec); env.Error.Code != tc.code || env.Error.Message == "" {
				t.Fatalf("unexpected envelope %+v", env)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Recommendations
// ---------------------------------------------------------------------------

func TestRecommendationsDecodesBody(t *testing.T) {
	recommend := &fakeRecommendService{}
	handler := newTestServer(nil, recommend)

	rec := postJSON(handler, "/api/recommendations", `{"seedId":"597","boosts":["romance","tragic"],"slider":{"id":"romance-vs-survival"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := recommend.lastRequest
	if got.SeedID != 597 || got.SeedType != domain.MediaMovie {
		t.Fatalf("unexpected seed %+v", got)
	}
	if len(got.Tuning.Boosts) != 2 || got.Tuning.Boosts[1] != "tragic" {
		t.Fatalf("unexpected boosts %+v", got.Tuning.Boosts)
	}
	if got.Tuning.Slider == nil || got.Tuning.Slider.ID != "romance-vs-survival" || got.Tuning.Slider.Value != 50 {
		t.Fatalf("slider should default to 50, got %+v", got.Tuning.Slider)
	}

	rec = postJSON(handler, "/api/recommendations", `{"seedId":71446,"seedType":"tv","boosts":[],"slider":{"id":"x","value":0}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got = recommend.lastRequest
	if got.SeedID != 71446 || got.SeedType != domain.MediaTV || got.Tuning.Slider.Value != 0 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestRecommendationsIgnoresSliderWithoutID(t *testing.T) {
	for _, body := range []string{
		`{"seedId":597,"slider":{"value":10}}`,
		`{"seedId":597,"slider":{"id":"  ","value":10}}`,
	} {
		recommend := &fakeRecommendService{}
		rec := postJSON(newTestServer(nil, recommend), "/api/recommendations", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", body, rec.Code, rec.Body.String())
		}
		if recommend.lastRequest.Tuning.Slider != nil {
			t.Fatalf("%s: slider without id should be dropped, got %+v", body, recommend.lastRequest.Tuning.Slider)
		}
	}
}

func TestRecommendationsRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"missing seed", `{}`, domain.ErrInvalidSeedID.Error()},
		{"non numeric seed", `{"seedId":"abc"}`, domain.ErrInvalidSeedID.Error()},
		{"fractional seed", `{"seedId":1.5}`, domain.ErrInvalidSeedID.Error()},
		{"negative seed", `{"seedId":-3}`, domain.ErrInvalidSeedID.Error()},
		{"bad media type", `{"seedId":1,"seedType":"anime"}`, domain.ErrInvalidMediaType.Error()},
		{"unknown boost", `{"seedId":1,"boosts":["romance","explosions"]}`, "unknown trait: explosions"},
		{"broken json", `{"seedId":`, "invalid json body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recommend := &fakeRecommendService{}
			rec := postJSON(newTestServer(nil, recommend), "/api/recommendations", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			env := decodeError(t, rec)
			if env.Error.Code != "invalid_request" || !strings.Contains(env.Error.Message, tc.message) {
				t.Fatalf("unexpected envelope %+v", env)
			}
			if recommend.callCount != 0 {
				t.Fatalf("bad input reached the service")
			}
		})
	}
}

func TestRecommendationsSeedNotFound(t *testing.T) {
	recommend := &fakeRecommendService{err: fmt.Errorf("load seed: %w", &catalog.StatusError{Status: 404, Path: "/movie/9", Message: "nope"})}
	rec := postJSON(newTestServer(nil, recommend), "/api/recommendations", `{"seedId":9}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRecommendationsWrongMethod(t *testing.T) {
	rec := get(newTestServer(nil, &fakeRecommendService{}), "/api/recommendations")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Traits, health, routing
// ---------------------------------------------------------------------------

func TestTraitsListsVocabulary(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/api/traits")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var refs []domain.TraitRef
	if err := json.Unmarshal(rec.Body.Bytes(), &refs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(refs) != 27 {
		t.Fatalf("expected 27 traits, got %d", len(refs))
	}
	if refs[0].ID != "romance" || refs[0].Label != "Romance" || refs[0].Category == "" {
		t.Fatalf("unexpected first trait %+v", refs[0])
	}
}

func TestHealth(t *testing.T) {
	rec := get(newTestServer(nil, nil, WithHealthChecker(fakeChecker{})), "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health %d %s", rec.Code, rec.Body.String())
	}

	rec = get(newTestServer(nil, nil, WithHealthChecker(fakeChecker{err: errors.New("redis down")})), "/health")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "redis down") {
		t.Fatalf("unexpected degraded health %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/api/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.Code != "not_found" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func TestRequestIDEchoedOrGenerated(t *testing.T) {
	handler := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}

	rec = get(handler, "/health")
	if got := rec.Header().Get(requestIDHeader); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	handler := NewServer(&fakeSearchService{}, nil, WithLogger(quietLogger()), WithRateLimit(1, 1)).Handler()

	if rec := get(handler, "/api/search?q=a"); rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}
	rec := get(handler, "/api/search?q=a")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec := get(handler, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("health must bypass the limiter, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestServer(nil, &fakeRecommendService{}, WithCORSOrigins([]string{"https://app.example"}))
	req := httptest.NewRequest(http.MethodOptions, "/api/recommendations", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestPanicRecovery(t *testing.T) {
	rec := get(newTestServer(&fakeSearchService{panics: true}, nil), "/api/search?q=titanic")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.Code != "internal_error" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestMetricsUseRoutePattern(t *testing.T) {
	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/traits", "200")
	before := testutil.ToFloat64(counter)
	get(newTestServer(nil, nil), "/api/traits")
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Fatalf("requests counter = %v, want %v", got, before+1)
	}
}
