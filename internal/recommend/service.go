// Package recommend ranks titles related to a seed by trait similarity,
// rating quality and popularity.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"watchwise/discoveryservice/internal/catalog"
	"watchwise/discoveryservice/internal/domain"
	"watchwise/discoveryservice/internal/metrics"
	"watchwise/discoveryservice/internal/scoring"
	"watchwise/discoveryservice/internal/traits"
)

const (
	maxCandidates     = 60
	maxItems          = 18
	maxSeedGenres     = 3
	maxSharedGenres   = 3
	maxSharedTraits   = 4
	maxTraitReasons   = 3
	maxGenreReasons   = 2
	maxReasons        = 4
	discoverVoteFloor = 120
	genreBreakdownPct = 20
	untitled          = "Untitled"
)

// Catalog is the subset of the TMDB client the pipeline reads from.
type Catalog interface {
	MovieDetails(ctx context.Context, id int) (catalog.MovieDetails, error)
	TVDetails(ctx context.Context, id int) (catalog.TVDetails, error)
	TVKeywords(ctx context.Context, id int) ([]catalog.Keyword, error)
	Recommendations(ctx context.Context, mediaType domain.MediaType, id int) ([]catalog.ListItem, error)
	Similar(ctx context.Context, mediaType domain.MediaType, id int) ([]catalog.ListItem, error)
	Discover(ctx context.Context, q catalog.DiscoverQuery) ([]catalog.ListItem, error)
	Genres(ctx context.Context, mediaType domain.MediaType) ([]catalog.Genre, error)
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

type seed struct {
	title   string
	genres  []catalog.Genre
	signals traits.Signals
}

type candidate struct {
	item         catalog.ListItem
	score        float64
	similarity   float64
	sharedTraits []string
	sharedGenres []string
	reasons      []string
}

func (s *Service) Recommend(ctx context.Context, req domain.RecommendRequest) (domain.RecommendResponse, error) {
	if req.SeedID <= 0 {
		return domain.RecommendResponse{}, domain.ErrInvalidSeedID
	}
	if !req.SeedType.Valid() {
		return domain.RecommendResponse{}, domain.ErrInvalidMediaType
	}
	boosts, err := traits.Parse(req.Tuning.Boosts)
	if err != nil {
		return domain.RecommendResponse{}, err
	}

	var (
		seedInfo               seed
		recs, similar, related []catalog.ListItem
		genres                 []catalog.Genre
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loaded, err := s.loadSeed(gctx, req.SeedID, req.SeedType)
		if err != nil {
			return err
		}
		seedInfo = loaded
		if ids := genreIDs(loaded.genres, maxSeedGenres); len(ids) > 0 {
			related = auxiliary(gctx, s, "discover", func(ctx context.Context) ([]catalog.ListItem, error) {
				return s.catalog.Discover(ctx, catalog.DiscoverQuery{
					MediaType:    req.SeedType,
					GenreIDs:     ids,
					MinVoteCount: discoverVoteFloor,
					SortBy:       "popularity.desc",
				})
			})
		}
		return nil
	})
	g.Go(func() error {
		recs = auxiliary(gctx, s, "recommendations", func(ctx context.Context) ([]catalog.ListItem, error) {
			return s.catalog.Recommendations(ctx, req.SeedType, req.SeedID)
		})
		return nil
	})
	g.Go(func() error {
		similar = auxiliary(gctx, s, "similar", func(ctx context.Context) ([]catalog.ListItem, error) {
			return s.catalog.Similar(ctx, req.SeedType, req.SeedID)
		})
		return nil
	})
	g.Go(func() error {
		genres = auxiliary(gctx, s, "genres", func(ctx context.Context) ([]catalog.Genre, error) {
			return s.catalog.Genres(ctx, req.SeedType)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.RecommendResponse{}, err
	}

	seedScores := traits.Extract(seedInfo.signals)
	pack := traits.PackFor(seedScores)
	seedVec := scoring.BuildVector(seedScores, boosts, activeSlider(pack, req.Tuning.Slider))

	genreNames := make(map[int]string, len(genres))
	for _, genre := range genres {
		genreNames[genre.ID] = genre.Name
	}

	seedKey := domain.TitleKey{Type: req.SeedType, ID: req.SeedID}
	pool := aggregate(req.SeedType, seedKey, recs, similar, related)

	scored := make([]candidate, 0, len(pool))
	for _, item := range pool {
		scored = append(scored, scoreCandidate(item, seedInfo, seedScores, seedVec, genreNames))
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > maxItems {
		scored = scored[:maxItems]
	}

	items := make([]domain.RecommendationItem, 0, len(scored))
	for _, c := range scored {
		items = append(items, s.toItem(req.SeedType, c))
	}

	return domain.RecommendResponse{
		Seed:     domain.SeedRef{ID: req.SeedID, MediaType: req.SeedType, Title: seedInfo.title},
		TunePack: pack.Describe(),
		Items:    items,
	}, nil
}

// loadSeed is the only mandatory fetch: its failure aborts the request.
func (s *Service) loadSeed(ctx context.Context, id int, mediaType domain.MediaType) (seed, error) {
	if mediaType == domain.MediaMovie {
		movie, err := s.catalog.MovieDetails(ctx, id)
		if err != nil {
			return seed{}, fmt.Errorf("load seed movie %d: %w", id, err)
		}
		return seed{
			title:  movie.Title,
			genres: movie.Genres,
			signals: traits.Signals{
				Overview: movie.Overview,
				Genres:   genreNamesOf(movie.Genres),
				Keywords: keywordNames(movie.Keywords.Keywords),
				Runtime:  movie.Runtime,
			},
		}, nil
	}

	var (
		show     catalog.TVDetails
		keywords []catalog.Keyword
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		show, err = s.catalog.TVDetails(gctx, id)
		if err != nil {
			return fmt.Errorf("load seed show %d: %w", id, err)
		}
		return nil
	})
	g.Go(func() error {
		keywords = auxiliary(gctx, s, "tv_keywords", func(ctx context.Context) ([]catalog.Keyword, error) {
			return s.catalog.TVKeywords(ctx, id)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return seed{}, err
	}

	runtime := 0
	if len(show.EpisodeRunTime) > 0 {
		runtime = show.EpisodeRunTime[0]
	}
	return seed{
		title:  show.Name,
		genres: show.Genres,
		signals: traits.Signals{
			Overview: show.Overview,
			Genres:   genreNamesOf(show.Genres),
			Keywords: keywordNames(keywords),
			Runtime:  runtime,
		},
	}, nil
}

// auxiliary runs fetch and degrades any failure to an empty slot.
func auxiliary[T any](ctx context.Context, s *Service, source string, fetch func(context.Context) ([]T, error)) []T {
	out, err := fetch(ctx)
	if err == nil {
		return out
	}
	// A sibling mandatory fetch already failed; nothing to report.
	if ctx.Err() != nil {
		return nil
	}
	metrics.SourceFailuresTotal.WithLabelValues(source).Inc()
	s.logger.Warn("recommendation source failed",
		slog.String("source", source),
		slog.String("error", err.Error()),
	)
	return nil
}

// aggregate merges sources in order and dedupes by key: a repeated title
// keeps its first position but takes the last-seen copy. The seed is
// dropped and the pool capped.
func aggregate(mediaType domain.MediaType, seedKey domain.TitleKey, sources ...[]catalog.ListItem) []catalog.ListItem {
	index := make(map[domain.TitleKey]int)
	var merged []catalog.ListItem
	for _, source := range sources {
		for _, item := range source {
			key := domain.TitleKey{Type: mediaType, ID: item.ID}
			if pos, ok := index[key]; ok {
				merged[pos] = item
				continue
			}
			index[key] = len(merged)
			merged = append(merged, item)
		}
	}

	out := make([]catalog.ListItem, 0, min(len(merged), maxCandidates))
	for _, item := range merged {
		if item.ID <= 0 || (domain.TitleKey{Type: mediaType, ID: item.ID}) == seedKey {
			continue
		}
		out = append(out, item)
		if len(out) == maxCandidates {
			break
		}
	}
	return out
}

func scoreCandidate(item catalog.ListItem, seedInfo seed, seedScores, seedVec *traits.Vector, genreNames map[int]string) candidate {
	genres := make([]string, 0, len(item.GenreIDs))
	for _, id := range item.GenreIDs {
		if name, ok := genreNames[id]; ok && name != "" {
			genres = append(genres, name)
		}
	}
	candScores := traits.Extract(traits.Signals{Overview: item.Overview, Genres: genres})

	similarity := scoring.Cosine(seedVec, candScores)
	score := scoring.FinalScore(
		similarity,
		scoring.Quality(item.VoteAverage, item.VoteCount),
		scoring.Popularity(item.Popularity),
	)

	shared := sharedGenres(genres, seedInfo.genres)
	sharedTraits := scoring.SharedTraitLabels(seedScores, candScores, maxSharedTraits)

	reasons := make([]string, 0, maxReasons)
	reasons = append(reasons, sharedTraits[:min(len(sharedTraits), maxTraitReasons)]...)
	for _, genre := range shared[:min(len(shared), maxGenreReasons)] {
		reasons = append(reasons, "Shares genre: "+genre)
	}
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}

	return candidate{
		item:         item,
		score:        score,
		similarity:   similarity,
		sharedTraits: sharedTraits,
		sharedGenres: shared,
		reasons:      reasons,
	}
}

func (s *Service) toItem(mediaType domain.MediaType, c candidate) domain.RecommendationItem {
	title := c.item.DisplayTitle(mediaType)
	if title == "" {
		title = untitled
	}
	return domain.RecommendationItem{
		ID:          c.item.ID,
		MediaType:   mediaType,
		Title:       title,
		PosterPath:  c.item.PosterPath,
		PosterURL:   s.catalog.PosterURL(c.item.PosterPath),
		Year:        c.item.Year(mediaType),
		VoteAverage: c.item.VoteAverage,
		VoteCount:   c.item.VoteCount,
		Reasons:     c.reasons,
		Why: domain.Why{
			SharedTraits: c.sharedTraits,
			SharedThemes: []string{},
			SharedGenres: c.sharedGenres,
			Breakdown: domain.Breakdown{
				Themes: 0,
				Traits: int(math.Round(c.similarity * 100)),
				Genres: len(c.sharedGenres) * genreBreakdownPct,
			},
			Confidence: scoring.ConfidenceFor(c.item.VoteCount),
		},
	}
}

// activeSlider resolves the caller's slider against the seed's pack. A
// setting for any other slider id falls back to the pack default.
func activeSlider(pack traits.TunePack, setting *domain.SliderSetting) *scoring.ActiveSlider {
	if pack.Slider == nil {
		return nil
	}
	value := pack.Slider.DefaultValue
	if setting != nil && setting.ID == pack.Slider.ID {
		value = setting.Value
	}
	return &scoring.ActiveSlider{Left: pack.Slider.Left, Right: pack.Slider.Right, Value: value}
}

func sharedGenres(candidate []string, seedGenres []catalog.Genre) []string {
	out := make([]string, 0, maxSharedGenres)
	for _, name := range candidate {
		for _, sg := range seedGenres {
			if strings.EqualFold(name, sg.Name) {
				out = append(out, name)
				break
			}
		}
		if len(out) == maxSharedGenres {
			break
		}
	}
	return out
}

func genreIDs(genres []catalog.Genre, limit int) []int {
	ids := make([]int, 0, limit)
	for _, genre := range genres {
		if genre.ID <= 0 {
			continue
		}
		ids = append(ids, genre.ID)
		if len(ids) == limit {
			break
		}
	}
	return ids
}

func genreNamesOf(genres []catalog.Genre) []string {
	names := make([]string, 0, len(genres))
	for _, genre := range genres {
		names = append(names, genre.Name)
	}
	return names
}

func keywordNames(keywords []catalog.Keyword) []string {
	names := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		names = append(names, keyword.Name)
	}
	return names
}
