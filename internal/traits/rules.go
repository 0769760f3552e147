package traits

import "regexp"

// genreRule fires once per genre string when any needle is a substring of it.
type genreRule struct {
	needles []string
	trait   ID
	weight  float64
}

type themeRule struct {
	pattern *regexp.Regexp
	trait   ID
	weight  float64
}

var genreRules = []genreRule{
	{needles: []string{"romance"}, trait: Romance, weight: 3},
	{needles: []string{"drama"}, trait: Tearjerker, weight: 1},
	{needles: []string{"comedy"}, trait: Wholesome, weight: 0.5},
	{needles: []string{"thriller"}, trait: Thriller, weight: 2},
	{needles: []string{"mystery"}, trait: Mystery, weight: 2},
	{needles: []string{"crime"}, trait: Crime, weight: 2},
	{needles: []string{"action"}, trait: Action, weight: 2},
	{needles: []string{"horror"}, trait: Horror, weight: 2},
	{needles: []string{"science fiction", "sci fi", "sci-fi"}, trait: SciFi, weight: 2},
	{needles: []string{"fantasy"}, trait: Fantasy, weight: 2},
	{needles: []string{"history"}, trait: Historical, weight: 2},
	{needles: []string{"war"}, trait: Historical, weight: 1},
}

func theme(expr string, trait ID, weight float64) themeRule {
	return themeRule{pattern: regexp.MustCompile(expr), trait: trait, weight: weight}
}

// Theme patterns match whole words of the normalized blob. Stems such as
// "politic" or "cynic" therefore only fire on that exact word.
var themeRules = []themeRule{
	theme(`\b(wedding|marriage|bride|groom|honeymoon)\b`, Romance, 2),
	theme(`\b(love|romance|romantic|relationship|affair)\b`, Romance, 2),
	theme(`\b(tragedy|tragic|death|dying|terminal|grief|mourning)\b`, Tragic, 2),
	theme(`\b(tearjerker|heartbreak|emotional|weeping|cry)\b`, Tearjerker, 2),
	theme(`\b(survive|survival|rescued|escape|stranded)\b`, Survival, 2),
	theme(`\b(disaster|shipwreck|titanic|earthquake|tsunami|plane crash|explosion)\b`, Disaster, 2),
	theme(`\b(period|victorian|medieval|ancient|historical|based on true|biopic)\b`, Historical, 2),
	theme(`\b(politic|election|government|president|senate|minister|regime)\b`, Political, 2),
	theme(`\b(satire|satirical|parody|spoof|social commentary)\b`, Satire, 2),
	theme(`\b(profanity|vulgar|crude|raunchy|explicit|obscene)\b`, OffensiveHumor, 2),
	theme(`\b(dark comedy|black comedy|gallows humor)\b`, DarkHumor, 2),
	theme(`\b(cynic|nihil|bleak|pessimis)\b`, Cynical, 2),
	theme(`\b(absurd|surreal|nonsense|weird|bizarre)\b`, Absurd, 2),
	theme(`\b(chaos|chaotic|anarchy|mayhem)\b`, ChaoticCharacters, 1.5),
	theme(`\b(character study|character-driven|relationships)\b`, CharacterDriven, 1.5),
	theme(`\b(chase|heist|race against time|mission)\b`, FastPaced, 1.5),
	theme(`\b(slow burn|slow-burn)\b`, SlowBurn, 2),
	theme(`\b(family)\b`, Family, 1.2),
	theme(`\b(friendship|friends)\b`, Friendship, 1.2),
	theme(`\b(teen|high school|coming of age)\b`, ComingOfAge, 1.2),
}

const (
	longRuntimeMinutes  = 140
	shortRuntimeMinutes = 95
	longRuntimeWeight   = 0.8
	shortRuntimeWeight  = 0.5
)
