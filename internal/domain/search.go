package domain

import "strings"

type SearchMode string

const (
	SearchModeAuto   SearchMode = "auto"
	SearchModeTitle  SearchMode = "title"
	SearchModeThemes SearchMode = "themes"
)

func ParseSearchMode(raw string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SearchModeAuto:
		return SearchModeAuto, nil
	case SearchModeTitle:
		return SearchModeTitle, nil
	case SearchModeThemes:
		return SearchModeThemes, nil
	default:
		return "", ErrInvalidMode
	}
}

type SearchRequest struct {
	Query         string
	Mode          SearchMode
	AnimationOnly bool
}

type SearchResult struct {
	ID          int       `json:"id"`
	MediaType   MediaType `json:"media_type"`
	Title       string    `json:"title"`
	PosterPath  string    `json:"poster_path,omitempty"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Year        string    `json:"year,omitempty"`
	VoteAverage float64   `json:"vote_average"`
	VoteCount   int       `json:"vote_count"`
	Popularity  float64   `json:"popularity"`
}

func (r SearchResult) Key() TitleKey {
	return TitleKey{Type: r.MediaType, ID: r.ID}
}

type SearchResponse struct {
	Query       string         `json:"query"`
	Mode        SearchMode     `json:"mode"`
	Results     []SearchResult `json:"results"`
	Suggestions []string       `json:"suggestions"`
}
