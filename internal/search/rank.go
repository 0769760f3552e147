package search

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"watchwise/discoveryservice/internal/domain"
	"watchwise/discoveryservice/internal/text"
)

const (
	exactMatchBonus     = 1200
	prefixMatchBonus    = 650
	substringMatchBonus = 280
	popularityCap       = 350
	popularityFactor    = 2
	posterBonus         = 35
	ratingCap           = 60
	ratingFactor        = 6
	tvIntentBonus       = 120
	thematicSourceBonus = 80
	thematicMinTokens   = 3
)

var (
	thematicWords = regexp.MustCompile(`(?i)(movies|movie|films|film|like|series|show|tv)\b`)
	tvIntentWords = regexp.MustCompile(`(?i)(season|episode|series|show|tv)\b`)
)

type ranked struct {
	result domain.SearchResult
	score  float64
}

// looksThematic reports whether a query reads like a description rather
// than a title.
func looksThematic(raw, normalized string) bool {
	if thematicWords.MatchString(raw) {
		return true
	}
	return len(text.Tokens(normalized)) >= thematicMinTokens
}

// literalScore ranks a result against the raw query: stacked exact, prefix
// and substring bonuses plus capped popularity, poster and rating nudges.
// A query or title with nothing to compare scores zero.
func literalScore(rawQuery string, r domain.SearchResult) float64 {
	q := foldLiteral(rawQuery)
	t := foldLiteral(r.Title)
	if q == "" || t == "" {
		return 0
	}

	var score float64
	if t == q {
		score += exactMatchBonus
	}
	if strings.HasPrefix(t, q) {
		score += prefixMatchBonus
	}
	if strings.Contains(t, q) {
		score += substringMatchBonus
	}
	score += math.Min(popularityCap, r.Popularity*popularityFactor)
	if r.PosterPath != "" {
		score += posterBonus
	}
	score += math.Min(ratingCap, r.VoteAverage*ratingFactor)
	if r.MediaType == domain.MediaTV && tvIntentWords.MatchString(rawQuery) {
		score += tvIntentBonus
	}
	return score
}

// foldLiteral keeps lowercase ASCII letters and digits, folding accents
// first so "Amélie" compares equal to "amelie".
func foldLiteral(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(cleaned), " ")
}

func sortRanked(items []ranked) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })
}

// merge keys lists by title: a repeated title keeps its first position and
// takes the last-seen copy. The result is re-sorted by score.
func merge(lists ...[]ranked) []ranked {
	index := make(map[domain.TitleKey]int)
	var out []ranked
	for _, list := range lists {
		for _, item := range list {
			key := item.result.Key()
			if pos, ok := index[key]; ok {
				out[pos] = item
				continue
			}
			index[key] = len(out)
			out = append(out, item)
		}
	}
	sortRanked(out)
	return out
}

// suggestions lists distinct titles, case-insensitively, in rank order.
func suggestions(items []ranked, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		title := item.result.Title
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, title)
		if len(out) == limit {
			break
		}
	}
	return out
}
