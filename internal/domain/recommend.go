package domain

type Confidence string

const (
	ConfidenceHigh         Confidence = "high"
	ConfidenceMedium       Confidence = "medium"
	ConfidenceExperimental Confidence = "experimental"
)

type SliderSetting struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

// TuningState is the caller's per-request adjustment of a seed's vector.
type TuningState struct {
	Boosts []string       `json:"boosts"`
	Slider *SliderSetting `json:"slider,omitempty"`
}

type RecommendRequest struct {
	SeedID   int
	SeedType MediaType
	Tuning   TuningState
}

type TraitRef struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
}

type TuneSlider struct {
	ID           string  `json:"id"`
	LeftLabel    string  `json:"leftLabel"`
	RightLabel   string  `json:"rightLabel"`
	LeftTrait    string  `json:"leftTrait"`
	RightTrait   string  `json:"rightTrait"`
	DefaultValue float64 `json:"defaultValue"`
}

type TunePack struct {
	BasedOn []TraitRef  `json:"basedOn"`
	Boosts  []TraitRef  `json:"boosts"`
	Slider  *TuneSlider `json:"slider,omitempty"`
}

// Breakdown values are percentages derived from scoring. Themes is reserved and always zero.
type Breakdown struct {
	Themes int `json:"themes"`
	Traits int `json:"traits"`
	Genres int `json:"genres"`
}

type Why struct {
	SharedTraits []string   `json:"sharedTraits"`
	SharedThemes []string   `json:"sharedThemes"`
	SharedGenres []string   `json:"sharedGenres"`
	Breakdown    Breakdown  `json:"breakdown"`
	Confidence   Confidence `json:"confidence"`
}

type RecommendationItem struct {
	ID          int       `json:"id"`
	MediaType   MediaType `json:"media_type"`
	Title       string    `json:"title"`
	PosterPath  string    `json:"poster_path,omitempty"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Year        string    `json:"year,omitempty"`
	VoteAverage float64   `json:"vote_average"`
	VoteCount   int       `json:"vote_count"`
	Reasons     []string  `json:"reasons"`
	Why         Why       `json:"why"`
}

type SeedRef struct {
	ID        int       `json:"id"`
	MediaType MediaType `json:"media_type"`
	Title     string    `json:"title"`
}

type RecommendResponse struct {
	Seed     SeedRef              `json:"seed"`
	TunePack TunePack             `json:"tunePack"`
	Items    []RecommendationItem `json:"items"`
}
