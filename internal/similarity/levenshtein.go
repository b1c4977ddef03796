package similarity

import "strings"

// Levenshtein computes the classic single-character insert/delete/substitute
// edit distance between two strings. Distances are computed over runes, not
// bytes, so multi-byte text (e.g. Japanese chart fields) counts each
// character as a single unit.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Two-row dynamic programming. prev[j] is the distance between
	// ra[:i] and rb[:j] from the previous iteration.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// TextSimilarity returns the normalized inverse edit distance between a raw
// OCR reading and its interpreted value, in [0, 1].
//
// Nil and empty inputs are normal, not errors:
//   - both nil or both empty -> 1.0 (nothing read, nothing interpreted)
//   - exactly one nil/empty  -> 0.0 (total disagreement)
//
// Otherwise the score is 1 - distance/max(runeLen(a), runeLen(b)), clamped
// to [0, 1]. The function is pure, deterministic and symmetric.
func TextSimilarity(rawText, interpretedText *string) float64 {
	if rawText == nil || interpretedText == nil {
		if rawText == nil && interpretedText == nil {
			return 1.0
		}
		return 0.0
	}

	a := strings.TrimSpace(*rawText)
	b := strings.TrimSpace(*interpretedText)

	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}

	score := 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
	return Clamp(score)
}

// Clamp bounds a score to [0, 1]. Slightly out-of-range upstream values are
// corrected rather than rejected so a single bad score cannot abort a batch.
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
