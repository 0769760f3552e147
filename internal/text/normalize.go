// Package text canonicalizes free-text queries before they reach ranking or
// the upstream keyword lookup.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
)

var stopWords = map[string]struct{}{
	"the":     {},
	"a":       {},
	"an":      {},
	"and":     {},
	"or":      {},
	"of":      {},
	"to":      {},
	"in":      {},
	"on":      {},
	"for":     {},
	"episode": {},
	"season":  {},
}

// NormalizeQuery lowercases q, folds curly quotes, blanks out punctuation
// other than : ' " - and collapses whitespace. An empty result means "no query".
func NormalizeQuery(q string) string {
	q = quoteReplacer.Replace(strings.TrimSpace(q))
	if q == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsSpace(r):
			return r
		case r == ':' || r == '\'' || r == '"' || r == '-':
			return r
		default:
			return ' '
		}
	}, q)
	collapsed := strings.Join(strings.Fields(cleaned), " ")
	// Casers carry state; one per call keeps this safe for concurrent use.
	return cases.Lower(language.Und).String(collapsed)
}

// StripStopWords drops function words from an already normalized query.
func StripStopWords(q string) string {
	tokens := strings.Split(q, " ")
	kept := tokens[:0]
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

// Tokens splits a normalized query on whitespace.
func Tokens(q string) []string {
	return strings.Fields(q)
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi float64) float64 {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
