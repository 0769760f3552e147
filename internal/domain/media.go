package domain

import (
	"strconv"
	"strings"
)

type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// ParseMediaType accepts "movie" and "tv" case-insensitively. An empty value
// resolves to movie.
func ParseMediaType(raw string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "movie":
		return MediaMovie, nil
	case "tv":
		return MediaTV, nil
	default:
		return "", ErrInvalidMediaType
	}
}

func (m MediaType) Valid() bool {
	return m == MediaMovie || m == MediaTV
}

// TitleKey identifies a title across media types. Movie and TV ids overlap upstream.
type TitleKey struct {
	Type MediaType
	ID   int
}

func (k TitleKey) String() string {
	return string(k.Type) + ":" + strconv.Itoa(k.ID)
}

// AnimationGenreID is the catalog's genre id for animation, shared by movie and TV lists.
const AnimationGenreID = 16
