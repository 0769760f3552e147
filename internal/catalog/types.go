package catalog

import (
	"slices"

	"watchwise/discoveryservice/internal/domain"
)

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Keyword struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ListItem is one entry of a search, discover, similar or recommendations
// list. MediaType is only set by multi search.
type ListItem struct {
	ID           int     `json:"id"`
	MediaType    string  `json:"media_type,omitempty"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	GenreIDs     []int   `json:"genre_ids,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	VoteCount    int     `json:"vote_count,omitempty"`
	Popularity   float64 `json:"popularity,omitempty"`
}

// DisplayTitle picks title for movies and name for TV.
func (r ListItem) DisplayTitle(mediaType domain.MediaType) string {
	if mediaType == domain.MediaTV {
		return r.Name
	}
	return r.Title
}

// Year is the four-digit release or first-air year, or "".
func (r ListItem) Year(mediaType domain.MediaType) string {
	date := r.ReleaseDate
	if mediaType == domain.MediaTV {
		date = r.FirstAirDate
	}
	return yearOf(date)
}

func (r ListItem) HasGenre(id int) bool {
	return slices.Contains(r.GenreIDs, id)
}

type MovieDetails struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
	Genres      []Genre `json:"genres"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Runtime     int     `json:"runtime,omitempty"`
	Keywords    struct {
		Keywords []Keyword `json:"keywords"`
	} `json:"keywords"`
}

type TVDetails struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Overview       string  `json:"overview"`
	PosterPath     string  `json:"poster_path,omitempty"`
	FirstAirDate   string  `json:"first_air_date,omitempty"`
	Genres         []Genre `json:"genres"`
	VoteAverage    float64 `json:"vote_average"`
	VoteCount      int     `json:"vote_count"`
	EpisodeRunTime []int   `json:"episode_run_time,omitempty"`
}

// DiscoverQuery filters a discover listing. Empty id lists are omitted.
type DiscoverQuery struct {
	MediaType    domain.MediaType
	GenreIDs     []int
	KeywordIDs   []int
	MinVoteCount int
	SortBy       string
}

type listResponse struct {
	Results []ListItem `json:"results"`
}

type keywordsResponse struct {
	Results []Keyword `json:"results"`
}

type genresResponse struct {
	Genres []Genre `json:"genres"`
}

func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
