package review

import (
	"reflect"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func scoredItem(name string, text, semantic float64) Item {
	raw := "raw"
	interp := "interp"
	return Item{
		Name:            name,
		RawText:         &raw,
		InterpretedText: &interp,
		TextScore:       text,
		SemanticScore:   semantic,
	}
}

func TestShouldReview(t *testing.T) {
	th := FieldThresholds{Text: 0.8, Semantic: 0.8}

	tests := []struct {
		name string
		item Item
		want bool
	}{
		{"both above", scoredItem("主訴", 0.9, 0.9), false},
		{"both at threshold", scoredItem("主訴", 0.8, 0.8), false},
		{"text below only", scoredItem("主訴", 0.79, 0.95), true},
		{"semantic below only", scoredItem("主訴", 0.85, 0.65), true},
		{"both below", scoredItem("主訴", 0.1, 0.1), true},
		{"perfect scores", scoredItem("主訴", 1.0, 1.0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldReview(tt.item, th); got != tt.want {
				t.Errorf("ShouldReview = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldReviewNilRawTextAlwaysFlags(t *testing.T) {
	item := Item{
		Name:            "現病歴",
		RawText:         nil,
		InterpretedText: strPtr("something"),
		TextScore:       1.0,
		SemanticScore:   1.0,
	}
	if !ShouldReview(item, FieldThresholds{Text: 0, Semantic: 0}) {
		t.Error("nil raw_text must always flag for review, regardless of scores")
	}
}

func TestShouldReviewIncompleteScoresFlag(t *testing.T) {
	item := scoredItem("内服薬", 1.0, 0)
	item.ScoreIncomplete = true
	if !ShouldReview(item, FieldThresholds{Text: 0, Semantic: 0}) {
		t.Error("incomplete scoring must flag for review")
	}
}

func TestShouldReviewHumanReviewedNeverReflagged(t *testing.T) {
	now := time.Now()
	item := scoredItem("既往歴", 0.1, 0.1)
	item.ReviewedBy = strPtr("dr.tanaka")
	item.ReviewedAt = &now

	if ShouldReview(item, FieldThresholds{Text: 0.9, Semantic: 0.9}) {
		t.Error("already-reviewed item must not be re-flagged automatically")
	}
}

func TestShouldReviewClampsOutOfRangeScores(t *testing.T) {
	// Upstream sent a slightly out-of-range score; clamp, don't crash.
	item := scoredItem("家族歴", 1.2, -0.3)
	if !ShouldReview(item, FieldThresholds{Text: 0.8, Semantic: 0.8}) {
		t.Error("negative semantic score clamps to 0 and must flag")
	}

	item = scoredItem("家族歴", 1.7, 2.0)
	if ShouldReview(item, FieldThresholds{Text: 0.8, Semantic: 0.8}) {
		t.Error("scores above 1 clamp to 1 and must pass")
	}
}

func TestProcess(t *testing.T) {
	items := []Item{
		scoredItem("主訴", 0.85, 0.65),
		scoredItem("現病歴", 0.95, 0.95),
		scoredItem("血圧", 0.85, 0.85),
	}
	thresholds := map[string]FieldThresholds{
		"主訴":  {Text: 0.8, Semantic: 0.8},
		"現病歴": {Text: 0.8, Semantic: 0.8},
		// 血圧 deliberately missing: falls back to 0.8/0.8 defaults.
	}

	got := Process(items, thresholds)

	if len(got) != len(items) {
		t.Fatalf("expected %d items, got %d", len(items), len(got))
	}
	if !got[0].NeedsReview {
		t.Error("主訴 fails semantic threshold (0.65 < 0.8) and must be flagged")
	}
	if got[1].NeedsReview {
		t.Error("現病歴 passes both thresholds and must not be flagged")
	}
	if got[2].NeedsReview {
		t.Error("血圧 with missing thresholds entry meets the 0.8/0.8 defaults")
	}

	// Order preserved.
	for i := range items {
		if got[i].Name != items[i].Name {
			t.Errorf("order not preserved at %d: %s != %s", i, got[i].Name, items[i].Name)
		}
	}
}

func TestProcessDoesNotMutateInput(t *testing.T) {
	items := []Item{scoredItem("主訴", 0.2, 0.2)}
	Process(items, nil)
	if items[0].NeedsReview {
		t.Error("Process mutated its input")
	}
}

func TestProcessIdempotent(t *testing.T) {
	items := []Item{
		scoredItem("主訴", 0.85, 0.65),
		scoredItem("現病歴", 0.95, 0.95),
	}
	thresholds := map[string]FieldThresholds{"主訴": {Text: 0.8, Semantic: 0.8}}

	first := Process(items, thresholds)
	second := Process(items, thresholds)

	if !reflect.DeepEqual(first, second) {
		t.Error("Process is not idempotent over unchanged input")
	}
}

func TestCombinedScore(t *testing.T) {
	tests := []struct {
		text, semantic, want float64
	}{
		{1.0, 1.0, 1.0},
		{0.8, 0.6, 0.7},
		{0.0, 0.0, 0.0},
		{1.5, 0.5, 0.75}, // out-of-range input clamps first
	}
	for _, tt := range tests {
		got := CombinedScore(scoredItem("x", tt.text, tt.semantic))
		if got != tt.want {
			t.Errorf("CombinedScore(%v, %v) = %v, want %v", tt.text, tt.semantic, got, tt.want)
		}
	}
}

func TestOverallConfidence(t *testing.T) {
	if got := OverallConfidence(nil); got != 1.0 {
		t.Errorf("empty set = %v, want 1.0", got)
	}

	items := []Item{
		scoredItem("a", 1, 0.9),
		scoredItem("b", 1, 0.7),
	}
	if got := OverallConfidence(items); got != 0.8 {
		t.Errorf("got %v, want 0.8", got)
	}
}

func TestAnyNeedsReview(t *testing.T) {
	items := Process([]Item{
		scoredItem("a", 0.9, 0.9),
		scoredItem("b", 0.1, 0.9),
	}, nil)

	if !AnyNeedsReview(items) {
		t.Error("expected at least one flagged item")
	}
	if AnyNeedsReview(items[:1]) {
		t.Error("expected no flagged item in passing subset")
	}
}
