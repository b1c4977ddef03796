package review

import "github.com/kartescan/kartescan/internal/similarity"

// ShouldReview decides whether one scored item requires human review.
//
// Policy (OR, not an averaged cutoff): either score falling below its own
// threshold flags the field — a value can be textually exact but
// semantically nonsensical, or the reverse.
//
// Additional gates:
//   - RawText == nil (nothing was read at all) always flags, regardless of
//     scores: zero signal cannot be trusted.
//   - An incomplete score set (semantic backend failed) always flags.
//   - An item a human has already reviewed is never re-flagged; only a
//     fresh extraction run resets review state.
func ShouldReview(item Item, th FieldThresholds) bool {
	if item.Reviewed() {
		return false
	}
	if item.RawText == nil {
		return true
	}
	if item.ScoreIncomplete {
		return true
	}

	th = clampThresholds(th)
	text := similarity.Clamp(item.TextScore)
	semantic := similarity.Clamp(item.SemanticScore)

	return text < th.Text || semantic < th.Semantic
}

// Process applies ShouldReview to every item, returning new records in the
// same order and count as the input. The input is never mutated, incoming
// scores are clamped into [0, 1], and a missing thresholds entry falls back
// to the defaults — templates created before a field existed must still
// score sensibly. Calling Process twice on unchanged input yields identical
// output.
func Process(items []Item, thresholds map[string]FieldThresholds) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		th, ok := thresholds[item.Name]
		if !ok {
			th = DefaultThresholds()
		}

		item.TextScore = similarity.Clamp(item.TextScore)
		item.SemanticScore = similarity.Clamp(item.SemanticScore)
		item.NeedsReview = ShouldReview(item, th)
		out[i] = item
	}
	return out
}

// CombinedScore is the single display score for an item: the arithmetic
// mean of the two similarity signals. It is presentation-only — never
// persisted — and recomputable identically from the stored scores.
func CombinedScore(item Item) float64 {
	return similarity.Clamp((similarity.Clamp(item.TextScore) + similarity.Clamp(item.SemanticScore)) / 2)
}

// AnyNeedsReview reports whether any item in the set is flagged.
func AnyNeedsReview(items []Item) bool {
	for _, item := range items {
		if item.NeedsReview {
			return true
		}
	}
	return false
}

// OverallConfidence is the chart-level rollup: the mean of the per-field
// semantic scores. An empty set scores 1.0 (nothing to distrust).
func OverallConfidence(items []Item) float64 {
	if len(items) == 0 {
		return 1.0
	}
	var sum float64
	for _, item := range items {
		sum += similarity.Clamp(item.SemanticScore)
	}
	return sum / float64(len(items))
}

func clampThresholds(th FieldThresholds) FieldThresholds {
	th.Text = similarity.Clamp(th.Text)
	th.Semantic = similarity.Clamp(th.Semantic)
	return th
}
