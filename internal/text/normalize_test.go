package text

import "testing"

func TestNormalizeQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "   ", want: ""},
		{in: "Money Heist", want: "money heist"},
		{in: "  The   Office!!  ", want: "the office"},
		{in: "“Amélie”", want: `"amélie"`},
		{in: "Ocean’s Eleven", want: "ocean's eleven"},
		{in: "Star Wars: Episode IV", want: "star wars: episode iv"},
		{in: "spider-man (2002)", want: "spider-man 2002"},
		{in: "heist/series\twith clever  twists", want: "heist series with clever twists"},
		{in: "?!.,", want: ""},
	}
	for _, tc := range cases {
		if got := NormalizeQuery(tc.in); got != tc.want {
			t.Fatalf("NormalizeQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStripStopWords(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "the lord of the rings", want: "lord rings"},
		{in: "heist series with clever twists", want: "heist series with clever twists"},
		{in: "season 2 episode 5", want: "2 5"},
		{in: "the and of", want: ""},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		if got := StripStopWords(tc.in); got != tc.want {
			t.Fatalf("StripStopWords(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-5, 0, 100) != 0 || Clamp(150, 0, 100) != 100 || Clamp(42, 0, 100) != 42 {
		t.Fatalf("clamp bounds broken")
	}
}
