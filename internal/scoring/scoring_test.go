package scoring

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"watchwise/discoveryservice/internal/domain"
	"watchwise/discoveryservice/internal/traits"
)

func vec(pairs ...any) *traits.Vector {
	v := traits.NewVector()
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Add(pairs[i].(traits.ID), pairs[i+1].(float64))
	}
	return v
}

func randomVector(r *rand.Rand) *traits.Vector {
	all := traits.All()
	v := traits.NewVector()
	for _, idx := range r.Perm(len(all))[:r.Intn(len(all))] {
		v.Add(all[idx].ID, r.Float64()*7)
	}
	return v
}

func TestCosineSymmetricAndBounded(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a, b := randomVector(r), randomVector(r)
		ab, ba := Cosine(a, b), Cosine(b, a)
		if ab != ba {
			t.Fatalf("asymmetric: %v vs %v", ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Fatalf("out of bounds: %v", ab)
		}
	}
}

func TestCosineEdgeCases(t *testing.T) {
	a := vec(traits.Romance, 3.0, traits.Disaster, 2.0)
	if got := Cosine(a, traits.NewVector()); got != 0 {
		t.Fatalf("empty vector should score 0, got %v", got)
	}
	if got := Cosine(nil, a); got != 0 {
		t.Fatalf("nil vector should score 0, got %v", got)
	}
	if got := Cosine(a, a.Clone()); math.Abs(got-1) > 1e-12 {
		t.Fatalf("identical vectors should score 1, got %v", got)
	}
	if got := Cosine(a, vec(traits.Horror, 1.0)); got != 0 {
		t.Fatalf("disjoint vectors should score 0, got %v", got)
	}
}

func TestBuildVector(t *testing.T) {
	base := vec(traits.Romance, 5.0, traits.Disaster, 2.0)

	v := BuildVector(base, []traits.ID{traits.Satire}, &ActiveSlider{Left: traits.Romance, Right: traits.Disaster, Value: 75})
	if v.Get(traits.Satire) != 2 {
		t.Fatalf("boost = %v", v.Get(traits.Satire))
	}
	if math.Abs(v.Get(traits.Romance)-5.5) > 1e-12 || math.Abs(v.Get(traits.Disaster)-3.5) > 1e-12 {
		t.Fatalf("slider split romance=%v disaster=%v", v.Get(traits.Romance), v.Get(traits.Disaster))
	}
	if base.Get(traits.Romance) != 5 || base.Has(traits.Satire) {
		t.Fatalf("base vector mutated")
	}

	clamped := BuildVector(base, nil, &ActiveSlider{Left: traits.Romance, Right: traits.Disaster, Value: 180})
	if clamped.Get(traits.Romance) != 5 || clamped.Get(traits.Disaster) != 4 {
		t.Fatalf("slider value should clamp to 100: %v %v", clamped.Get(traits.Romance), clamped.Get(traits.Disaster))
	}
}

func TestQualityAndPopularity(t *testing.T) {
	if got := Quality(10, 5000); got != 1 {
		t.Fatalf("max quality = %v", got)
	}
	if got := Quality(5, 1250); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("quality(5,1250) = %v", got)
	}
	if got := Quality(-3, -10); got != 0 {
		t.Fatalf("quality should clamp at 0, got %v", got)
	}
	if Popularity(1000) != 1 || Popularity(250) != 0.5 || Popularity(-1) != 0 {
		t.Fatalf("popularity normalization broken")
	}
}

func TestWeightsSumToOne(t *testing.T) {
	if math.Abs(WeightSimilarity+WeightQuality+WeightPopularity-1) > 1e-12 {
		t.Fatalf("weights must sum to 1")
	}
	if got := FinalScore(1, 1, 1); math.Abs(got-1) > 1e-12 {
		t.Fatalf("FinalScore(1,1,1) = %v", got)
	}
}

func TestSharedTraitLabels(t *testing.T) {
	seed := vec(traits.Romance, 5.0, traits.Tragic, 2.0, traits.Disaster, 2.0, traits.SlowBurn, 0.8, traits.Family, 3.0)
	cand := vec(traits.Disaster, 4.0, traits.Romance, 1.5, traits.SlowBurn, 3.0, traits.Tragic, 0.9)

	got := SharedTraitLabels(seed, cand, 4)
	want := []string{"Disaster", "Romance"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := SharedTraitLabels(seed, cand, 1); !reflect.DeepEqual(got, []string{"Disaster"}) {
		t.Fatalf("n should cap labels, got %v", got)
	}
}

func TestConfidenceFor(t *testing.T) {
	cases := []struct {
		votes int
		want  domain.Confidence
	}{
		{2000, domain.ConfidenceHigh},
		{1500, domain.ConfidenceHigh},
		{1499, domain.ConfidenceMedium},
		{500, domain.ConfidenceMedium},
		{400, domain.ConfidenceMedium},
		{399, domain.ConfidenceExperimental},
		{50, domain.ConfidenceExperimental},
		{0, domain.ConfidenceExperimental},
	}
	for _, tc := range cases {
		if got := ConfidenceFor(tc.votes); got != tc.want {
			t.Fatalf("ConfidenceFor(%d) = %s, want %s", tc.votes, got, tc.want)
		}
	}
}
