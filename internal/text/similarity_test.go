package text

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases and collapses whitespace",
			in:   "Big   Upset\tin  State Final",
			want: "big upset in state final",
		},
		{
			name: "strips html tags",
			in:   "<p>Team <b>Alpha</b> wins</p>",
			want: "team alpha wins",
		},
		{
			name: "replaces punctuation with spaces",
			in:   "3-1 win, late goal!",
			want: "3 1 win late goal",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	source := "Team A defeated Team B 3 to 1 in the final and secured the title after a late goal."

	tests := []struct {
		name      string
		a, b      string
		threshold float64
		wantAbove bool
	}{
		{
			name:      "verbatim copy scores above threshold",
			a:         source,
			b:         source,
			threshold: 0.72,
			wantAbove: true,
		},
		{
			name: "clear paraphrase scores below threshold",
			a:    source,
			b: "In the championship matchup, Team A came out on top with a 3-1 result over Team B, " +
				"clinching the crown thanks to a score that came near the end.",
			threshold: 0.72,
			wantAbove: false,
		},
		{
			name:      "lightly edited copy still scores above threshold",
			a:         source,
			b:         "Team A defeated Team B 3 to 1 in the big final and secured the title after a very late goal.",
			threshold: 0.72,
			wantAbove: true,
		},
		{
			name:      "unrelated text scores near zero",
			a:         source,
			b:         "The head coach signs a multi-year extension through 2029.",
			threshold: 0.3,
			wantAbove: false,
		},
		{
			name:      "empty side scores zero",
			a:         source,
			b:         "",
			threshold: 0.01,
			wantAbove: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if got < 0 || got > 1 {
				t.Fatalf("Similarity out of range: %f", got)
			}
			if above := got >= tt.threshold; above != tt.wantAbove {
				t.Errorf("Similarity = %f, want above %f: %v", got, tt.threshold, tt.wantAbove)
			}
		})
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	a := "Big upset in state final"
	b := "Big upset in state final as Team Alpha beats Team Beta"
	if ab, ba := Similarity(a, b), Similarity(b, a); ab != ba {
		t.Errorf("Similarity not symmetric: %f vs %f", ab, ba)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		maxLength int
		want      string
	}{
		{name: "basic title", in: "Big Win For The Home Team", maxLength: 70, want: "big-win-for-the-home-team"},
		{name: "punctuation collapses", in: "3-1!! (final)", maxLength: 70, want: "3-1-final"},
		{name: "truncated to max length", in: "abcdef ghijkl", maxLength: 6, want: "abcdef"},
		{name: "truncation strips trailing hyphen", in: "abcde fghij", maxLength: 6, want: "abcde"},
		{name: "empty falls back to clip", in: "!!!", maxLength: 70, want: "clip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in, tt.maxLength); got != tt.want {
				t.Errorf("Slugify(%q, %d) = %q, want %q", tt.in, tt.maxLength, got, tt.want)
			}
		})
	}
}
