// Package search disambiguates free-text queries between title lookup and
// thematic discovery, and ranks the merged results.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"watchwise/discoveryservice/internal/catalog"
	"watchwise/discoveryservice/internal/domain"
	"watchwise/discoveryservice/internal/metrics"
	"watchwise/discoveryservice/internal/text"
)

const (
	maxResults        = 24
	maxSuggestions    = 10
	maxKeywordIDs     = 3
	discoverVoteFloor = 120
	untitled          = "Untitled"
)

// Catalog is the subset of the TMDB client search reads from.
type Catalog interface {
	SearchMulti(ctx context.Context, query string) ([]catalog.ListItem, error)
	SearchKeywords(ctx context.Context, query string) ([]catalog.Keyword, error)
	Discover(ctx context.Context, q catalog.DiscoverQuery) ([]catalog.ListItem, error)
	PosterURL(path string) string
}

type Service struct {
	catalog Catalog
	logger  *slog.Logger
}

func NewService(c Catalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: c, logger: logger}
}

func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = domain.SearchModeAuto
	}
	if mode != domain.SearchModeAuto && mode != domain.SearchModeTitle && mode != domain.SearchModeThemes {
		return domain.SearchResponse{}, domain.ErrInvalidMode
	}

	query := strings.TrimSpace(req.Query)
	resp := domain.SearchResponse{
		Query:       query,
		Mode:        mode,
		Results:     []domain.SearchResult{},
		Suggestions: []string{},
	}
	normalized := text.NormalizeQuery(query)
	if normalized == "" {
		return resp, nil
	}

	thematic := looksThematic(query, normalized)
	// When themes are certain to run, look keywords up alongside the title search.
	themesKnown := mode == domain.SearchModeThemes || (mode == domain.SearchModeAuto && thematic)

	var (
		hits       []catalog.ListItem
		keywordIDs []int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hits, err = s.catalog.SearchMulti(gctx, query)
		if err != nil {
			return fmt.Errorf("title search %q: %w", query, err)
		}
		return nil
	})
	if themesKnown {
		g.Go(func() error {
			keywordIDs = s.lookupKeywords(gctx, normalized)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.SearchResponse{}, err
	}

	titles := s.rankTitles(query, hits, req.AnimationOnly)
	resp.Suggestions = suggestions(titles, maxSuggestions)

	runThemes := themesKnown || (mode == domain.SearchModeAuto && len(titles) == 0)
	metrics.SearchModeTotal.WithLabelValues(string(mode), strconv.FormatBool(runThemes)).Inc()

	final := titles
	if runThemes {
		if !themesKnown {
			keywordIDs = s.lookupKeywords(ctx, normalized)
		}
		if len(keywordIDs) > 0 {
			discovered := s.discoverThemes(ctx, query, keywordIDs, req.AnimationOnly)
			final = merge(discovered, titles)
		}
	}

	if len(final) > maxResults {
		final = final[:maxResults]
	}
	for _, item := range final {
		resp.Results = append(resp.Results, item.result)
	}
	return resp, nil
}

// lookupKeywords strips stop words for a narrower lookup and returns up to
// three keyword ids. Failures yield none.
func (s *Service) lookupKeywords(ctx context.Context, normalized string) []int {
	kwQuery := text.StripStopWords(normalized)
	if kwQuery == "" {
		kwQuery = normalized
	}
	keywords, err := s.catalog.SearchKeywords(ctx, kwQuery)
	if err != nil {
		s.sourceFailed(ctx, "search_keyword", err)
		return nil
	}
	ids := make([]int, 0, maxKeywordIDs)
	for _, kw := range keywords {
		ids = append(ids, kw.ID)
		if len(ids) == maxKeywordIDs {
			break
		}
	}
	return ids
}

// discoverThemes queries movie and TV discover concurrently. Each side
// degrades to empty on failure.
func (s *Service) discoverThemes(ctx context.Context, query string, keywordIDs []int, animationOnly bool) []ranked {
	types := []domain.MediaType{domain.MediaMovie, domain.MediaTV}
	lists := make([][]catalog.ListItem, len(types))

	var g errgroup.Group
	for i, mediaType := range types {
		g.Go(func() error {
			items, err := s.catalog.Discover(ctx, catalog.DiscoverQuery{
				MediaType:    mediaType,
				KeywordIDs:   keywordIDs,
				MinVoteCount: discoverVoteFloor,
				SortBy:       "popularity.desc",
			})
			if err != nil {
				s.sourceFailed(ctx, "discover_"+string(mediaType), err)
				return nil
			}
			lists[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var out []ranked
	for i, mediaType := range types {
		for _, item := range lists[i] {
			if animationOnly && !item.HasGenre(domain.AnimationGenreID) {
				continue
			}
			out = append(out, s.rank(query, mediaType, item, thematicSourceBonus))
		}
	}
	sortRanked(out)
	return out
}

// rankTitles keeps movies and shows from multi search, applies the
// animation filter, and sorts by literal score.
func (s *Service) rankTitles(query string, hits []catalog.ListItem, animationOnly bool) []ranked {
	out := make([]ranked, 0, len(hits))
	for _, item := range hits {
		mediaType := domain.MediaType(item.MediaType)
		if !mediaType.Valid() {
			continue
		}
		if animationOnly && !item.HasGenre(domain.AnimationGenreID) {
			continue
		}
		out = append(out, s.rank(query, mediaType, item, 0))
	}
	sortRanked(out)
	return out
}

// rank scores the catalog title as returned, so an item without one scores
// on its source bonus alone even though it is shown as "Untitled".
func (s *Service) rank(query string, mediaType domain.MediaType, item catalog.ListItem, bonus float64) ranked {
	result := s.toResult(mediaType, item)
	scored := result
	scored.Title = item.DisplayTitle(mediaType)
	return ranked{result: result, score: literalScore(query, scored) + bonus}
}

func (s *Service) toResult(mediaType domain.MediaType, item catalog.ListItem) domain.SearchResult {
	title := item.DisplayTitle(mediaType)
	if title == "" {
		title = untitled
	}
	return domain.SearchResult{
		ID:          item.ID,
		MediaType:   mediaType,
		Title:       title,
		PosterPath:  item.PosterPath,
		PosterURL:   s.catalog.PosterURL(item.PosterPath),
		Year:        item.Year(mediaType),
		VoteAverage: item.VoteAverage,
		VoteCount:   item.VoteCount,
		Popularity:  item.Popularity,
	}
}

func (s *Service) sourceFailed(ctx context.Context, source string, err error) {
	if ctx.Err() != nil {
		return
	}
	metrics.SourceFailuresTotal.WithLabelValues(source).Inc()
	s.logger.Warn("search source failed",
		slog.String("source", source),
		slog.String("error", err.Error()),
	)
}
