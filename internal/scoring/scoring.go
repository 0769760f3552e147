// Package scoring turns trait vectors into similarity and final ranking scores.
package scoring

import (
	"math"
	"sort"

	"watchwise/discoveryservice/internal/domain"
	"watchwise/discoveryservice/internal/text"
	"watchwise/discoveryservice/internal/traits"
)

// Final score weights. They sum to 1.
const (
	WeightSimilarity = 0.72
	WeightQuality    = 0.18
	WeightPopularity = 0.10
)

const (
	boostWeight         = 2.0
	sliderWeight        = 2.0
	sharedTraitFloor    = 0.9
	qualityVoteCeiling  = 2500
	popularityCeiling   = 500
	highConfidenceVotes = 1500
	midConfidenceVotes  = 400
)

// ActiveSlider is a resolved slider: its traits come from the seed's tune
// pack and Value from the caller or the pack default.
type ActiveSlider struct {
	Left  traits.ID
	Right traits.ID
	Value float64
}

// BuildVector copies base and applies boosts and the optional slider.
func BuildVector(base *traits.Vector, boosts []traits.ID, slider *ActiveSlider) *traits.Vector {
	v := base.Clone()
	for _, id := range boosts {
		v.Add(id, boostWeight)
	}
	if slider != nil {
		value := text.Clamp(slider.Value, 0, 100)
		v.Add(slider.Left, sliderWeight*(1-value/100))
		v.Add(slider.Right, sliderWeight*(value/100))
	}
	return v
}

// Cosine returns the cosine similarity of a and b in [0,1]. Terms are summed
// in vocabulary order, so Cosine(a, b) == Cosine(b, a) bit for bit.
func Cosine(a, b *traits.Vector) float64 {
	if a.Len() == 0 || b.Len() == 0 {
		return 0
	}
	var dot, na, nb float64
	for _, trait := range traits.All() {
		av, bv := a.Get(trait.ID), b.Get(trait.ID)
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return text.Clamp(dot/(math.Sqrt(na)*math.Sqrt(nb)), 0, 1)
}

func Quality(voteAverage float64, voteCount int) float64 {
	votes := text.Clamp(float64(voteCount)/qualityVoteCeiling, 0, 1)
	return text.Clamp(0.6*(voteAverage/10)+0.4*votes, 0, 1)
}

func Popularity(popularity float64) float64 {
	return text.Clamp(popularity/popularityCeiling, 0, 1)
}

func FinalScore(similarity, quality, popularity float64) float64 {
	return WeightSimilarity*similarity + WeightQuality*quality + WeightPopularity*popularity
}

// SharedTraitLabels lists up to n labels of traits both vectors carry with a
// minimum weight above 0.9, strongest first.
func SharedTraitLabels(seed, candidate *traits.Vector, n int) []string {
	type shared struct {
		id  traits.ID
		min float64
	}
	var matches []shared
	seed.Each(func(id traits.ID, sw float64) {
		if m := math.Min(sw, candidate.Get(id)); m > sharedTraitFloor {
			matches = append(matches, shared{id: id, min: m})
		}
	})
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].min > matches[j].min })
	if len(matches) > n {
		matches = matches[:n]
	}
	labels := make([]string, 0, len(matches))
	for _, m := range matches {
		labels = append(labels, traits.Label(m.id))
	}
	return labels
}

func ConfidenceFor(voteCount int) domain.Confidence {
	switch {
	case voteCount >= highConfidenceVotes:
		return domain.ConfidenceHigh
	case voteCount >= midConfidenceVotes:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceExperimental
	}
}
