package similarity

import "testing"

func strPtr(s string) *string { return &s }

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "kitten", "kitten", 0},
		{"classic", "kitten", "sitting", 3},
		{"empty to word", "", "abc", 3},
		{"word to empty", "abc", "", 3},
		{"both empty", "", "", 0},
		{"single substitution", "cat", "car", 1},
		{"cjk single substitution", "田中太郎", "田中太朗", 1},
		{"cjk insert", "主訴", "主訴あり", 2},
		{"mixed width", "血圧120", "血圧130", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Levenshtein(tt.a, tt.b); got != tt.want {
				t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTextSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b *string
		want float64
	}{
		{"both nil", nil, nil, 1.0},
		{"raw nil only", nil, strPtr("text"), 0.0},
		{"interpreted nil only", strPtr("text"), nil, 0.0},
		{"both empty", strPtr(""), strPtr(""), 1.0},
		{"one empty", strPtr(""), strPtr("text"), 0.0},
		{"whitespace only counts as empty pair", strPtr("  "), strPtr("\t"), 1.0},
		{"identical", strPtr("高血圧"), strPtr("高血圧"), 1.0},
		{"no shared characters", strPtr("abc"), strPtr("xyz"), 0.0},
		// One differing character in a four-character name: 1 - 1/4.
		{"cjk name one char off", strPtr("田中太郎"), strPtr("田中太朗"), 0.75},
		{"latin half match", strPtr("ab"), strPtr("ax"), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("TextSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"田中太郎", "田中太朗"},
		{"", "abc"},
		{"主訴なし", "既往歴なし"},
	}

	for _, p := range pairs {
		a, b := p[0], p[1]
		got := TextSimilarity(&a, &b)
		rev := TextSimilarity(&b, &a)
		if got != rev {
			t.Errorf("asymmetric: sim(%q,%q)=%v but sim(%q,%q)=%v", a, b, got, b, a, rev)
		}
	}
}

func TestTextSimilarityBounded(t *testing.T) {
	inputs := []*string{nil, strPtr(""), strPtr("a"), strPtr("田中"), strPtr("a very long string with many characters")}

	for _, a := range inputs {
		for _, b := range inputs {
			got := TextSimilarity(a, b)
			if got < 0.0 || got > 1.0 {
				t.Errorf("TextSimilarity out of bounds: %v", got)
			}
		}
	}
}

func TestTextSimilarityIdentity(t *testing.T) {
	for _, s := range []string{"", "a", "kitten", "田中太郎", "主訴: 頭痛が3日続く"} {
		if got := TextSimilarity(&s, &s); got != 1.0 {
			t.Errorf("TextSimilarity(%q, %q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0.0},
		{0.0, 0.0},
		{0.42, 0.42},
		{1.0, 1.0},
		{1.7, 1.0},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
