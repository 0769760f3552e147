// Package traits holds the closed "vibe" vocabulary and the deterministic rule
// engine that maps a title's signals onto it.
package traits

import (
	"fmt"

	"watchwise/discoveryservice/internal/domain"
)

type ID string

type Category string

const (
	CategoryTone    Category = "tone"
	CategoryHumor   Category = "humor"
	CategoryStory   Category = "story"
	CategoryEmotion Category = "emotion"
	CategoryTheme   Category = "theme"
	CategoryGenre   Category = "genre"
)

const (
	Romance           ID = "romance"
	Tragic            ID = "tragic"
	Tearjerker        ID = "tearjerker"
	Survival          ID = "survival"
	Disaster          ID = "disaster"
	Historical        ID = "historical"
	Political         ID = "political"
	Satire            ID = "satire"
	OffensiveHumor    ID = "offensive-humor"
	DarkHumor         ID = "dark-humor"
	Wholesome         ID = "wholesome"
	Cynical           ID = "cynical"
	Absurd            ID = "absurd"
	ChaoticCharacters ID = "chaotic-characters"
	CharacterDriven   ID = "character-driven"
	FastPaced         ID = "fast-paced"
	SlowBurn          ID = "slow-burn"
	Action            ID = "action"
	Crime             ID = "crime"
	Mystery           ID = "mystery"
	Thriller          ID = "thriller"
	Horror            ID = "horror"
	SciFi             ID = "sci-fi"
	Fantasy           ID = "fantasy"
	Family            ID = "family"
	Friendship        ID = "friendship"
	ComingOfAge       ID = "coming-of-age"
)

type Trait struct {
	ID       ID
	Label    string
	Category Category
}

// vocabulary order is the canonical order for any iteration that must not
// depend on map layout.
var vocabulary = [...]Trait{
	{Romance, "Romance", CategoryEmotion},
	{Tragic, "Tragic", CategoryEmotion},
	{Tearjerker, "Emotional / tearjerker", CategoryEmotion},
	{Survival, "Survival", CategoryTheme},
	{Disaster, "Disaster", CategoryTheme},
	{Historical, "Historical / period", CategoryTheme},
	{Political, "Political", CategoryTheme},
	{Satire, "Satire / social commentary", CategoryHumor},
	{OffensiveHumor, "Offensive humor", CategoryHumor},
	{DarkHumor, "Dark humor", CategoryHumor},
	{Wholesome, "Wholesome", CategoryTone},
	{Cynical, "Cynical", CategoryTone},
	{Absurd, "Absurd", CategoryTone},
	{ChaoticCharacters, "Chaotic characters", CategoryStory},
	{CharacterDriven, "Character-driven", CategoryStory},
	{FastPaced, "Fast-paced", CategoryStory},
	{SlowBurn, "Slow-burn", CategoryStory},
	{Action, "Action", CategoryGenre},
	{Crime, "Crime", CategoryGenre},
	{Mystery, "Mystery", CategoryGenre},
	{Thriller, "Thriller", CategoryGenre},
	{Horror, "Horror", CategoryGenre},
	{SciFi, "Sci-Fi", CategoryGenre},
	{Fantasy, "Fantasy", CategoryGenre},
	{Family, "Family", CategoryTheme},
	{Friendship, "Friendship", CategoryTheme},
	{ComingOfAge, "Coming of age", CategoryTheme},
}

var index = func() map[ID]int {
	m := make(map[ID]int, len(vocabulary))
	for i, t := range vocabulary {
		m[t.ID] = i
	}
	return m
}()

// All returns a copy of the vocabulary in canonical order.
func All() []Trait {
	out := make([]Trait, len(vocabulary))
	copy(out, vocabulary[:])
	return out
}

func Lookup(id ID) (Trait, bool) {
	i, ok := index[id]
	if !ok {
		return Trait{}, false
	}
	return vocabulary[i], true
}

// Label returns the display label, or the raw id for ids outside the vocabulary.
func Label(id ID) string {
	if t, ok := Lookup(id); ok {
		return t.Label
	}
	return string(id)
}

// Parse validates raw ids against the vocabulary, dropping duplicates and keeping order.
func Parse(raw []string) ([]ID, error) {
	out := make([]ID, 0, len(raw))
	seen := make(map[ID]struct{}, len(raw))
	for _, value := range raw {
		id := ID(value)
		if _, ok := index[id]; !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTrait, value)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func Valid(raw string) bool {
	_, ok := index[ID(raw)]
	return ok
}

func Ref(id ID) domain.TraitRef {
	t, _ := Lookup(id)
	return domain.TraitRef{ID: string(id), Label: Label(id), Category: string(t.Category)}
}
