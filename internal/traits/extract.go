package traits

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Signals is the per-title input to extraction. Runtime is in minutes; zero
// means unknown.
type Signals struct {
	Overview string
	Genres   []string
	Keywords []string
	Runtime  int
}

// Extract maps signals to a trait vector. It is pure: equal inputs give
// equal vectors, including encounter order.
func Extract(s Signals) *Vector {
	v := NewVector()

	genres := make([]string, 0, len(s.Genres))
	for _, g := range s.Genres {
		if n := normalizeSignal(g); n != "" {
			genres = append(genres, n)
		}
	}
	keywords := make([]string, 0, len(s.Keywords))
	for _, k := range s.Keywords {
		if n := normalizeSignal(k); n != "" {
			keywords = append(keywords, n)
		}
	}

	parts := make([]string, 0, 1+len(genres)+len(keywords))
	if overview := normalizeSignal(s.Overview); overview != "" {
		parts = append(parts, overview)
	}
	parts = append(parts, genres...)
	parts = append(parts, keywords...)
	blob := strings.Join(parts, " ")

	for _, g := range genres {
		for _, rule := range genreRules {
			if containsAny(g, rule.needles) {
				v.Add(rule.trait, rule.weight)
			}
		}
	}

	for _, rule := range themeRules {
		if rule.pattern.MatchString(blob) {
			v.Add(rule.trait, rule.weight)
		}
	}

	switch {
	case s.Runtime >= longRuntimeMinutes:
		v.Add(SlowBurn, longRuntimeWeight)
	case s.Runtime > 0 && s.Runtime <= shortRuntimeMinutes:
		v.Add(FastPaced, shortRuntimeWeight)
	}

	return v
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

// normalizeSignal lowercases, folds diacritics and keeps letters, digits,
// spaces and hyphens.
func normalizeSignal(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(cleaned), " ")
}
