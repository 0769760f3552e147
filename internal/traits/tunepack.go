package traits

import "watchwise/discoveryservice/internal/domain"

const (
	basedOnSize        = 5
	boostsSize         = 10
	DefaultSliderValue = 50
)

// Slider is a bipolar control between two traits. Value 0 leans fully left.
type Slider struct {
	ID           string
	LeftLabel    string
	RightLabel   string
	Left         ID
	Right        ID
	DefaultValue float64
}

// sliderTemplate pairs a left trait with the first present trait from rights.
type sliderTemplate struct {
	id         string
	leftLabel  string
	rightLabel string
	left       ID
	rights     []ID
}

// sliderTemplates are tried in priority order; the first whose traits are
// both present on the seed wins.
var sliderTemplates = []sliderTemplate{
	{id: "romance-vs-survival", leftLabel: "More romance", rightLabel: "More survival", left: Romance, rights: []ID{Survival, Disaster}},
	{id: "offensive-vs-satire", leftLabel: "More offensive", rightLabel: "More satire", left: OffensiveHumor, rights: []ID{Satire}},
	{id: "action-vs-romance", leftLabel: "More action", rightLabel: "More romance", left: Action, rights: []ID{Romance}},
	{id: "horror-vs-mystery", leftLabel: "More horror", rightLabel: "More mystery", left: Horror, rights: []ID{Mystery}},
}

func (t sliderTemplate) match(v *Vector) (*Slider, bool) {
	if !v.Has(t.left) {
		return nil, false
	}
	for _, right := range t.rights {
		if v.Has(right) {
			return &Slider{
				ID:           t.id,
				LeftLabel:    t.leftLabel,
				RightLabel:   t.rightLabel,
				Left:         t.left,
				Right:        right,
				DefaultValue: DefaultSliderValue,
			}, true
		}
	}
	return nil, false
}

// TunePack is the per-seed tuning surface.
type TunePack struct {
	BasedOn []ID
	Boosts  []ID
	Slider  *Slider
}

// BuildTunePack extracts the seed's traits and derives its tune pack.
func BuildTunePack(s Signals) TunePack {
	return PackFor(Extract(s))
}

// PackFor derives a tune pack from an already extracted vector.
func PackFor(v *Vector) TunePack {
	pack := TunePack{
		BasedOn: v.Top(basedOnSize),
		Boosts:  v.Top(boostsSize),
	}
	for _, tpl := range sliderTemplates {
		if slider, ok := tpl.match(v); ok {
			pack.Slider = slider
			break
		}
	}
	return pack
}

// Describe renders the pack with labels for the wire.
func (p TunePack) Describe() domain.TunePack {
	out := domain.TunePack{
		BasedOn: make([]domain.TraitRef, 0, len(p.BasedOn)),
		Boosts:  make([]domain.TraitRef, 0, len(p.Boosts)),
	}
	for _, id := range p.BasedOn {
		out.BasedOn = append(out.BasedOn, Ref(id))
	}
	for _, id := range p.Boosts {
		out.Boosts = append(out.Boosts, Ref(id))
	}
	if p.Slider != nil {
		out.Slider = &domain.TuneSlider{
			ID:           p.Slider.ID,
			LeftLabel:    p.Slider.LeftLabel,
			RightLabel:   p.Slider.RightLabel,
			LeftTrait:    string(p.Slider.Left),
			RightTrait:   string(p.Slider.Right),
			DefaultValue: p.Slider.DefaultValue,
		}
	}
	return out
}
