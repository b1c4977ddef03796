// Package similarity computes the two per-field similarity signals used to
// gate human review of extracted chart data: a character-level score based
// on Levenshtein edit distance and a meaning-level score from a pluggable
// semantic backend.
package similarity

import (
	"context"
	"time"
)

// Scores holds both similarity signals for one extracted field.
type Scores struct {
	// Text is the character-level (Levenshtein) similarity in [0, 1].
	Text float64 `json:"text"`
	// Semantic is the meaning-level similarity in [0, 1]. Only valid when
	// Complete is true.
	Semantic float64 `json:"semantic"`
	// Complete reports whether both signals were computed. When false the
	// semantic backend failed and the field must be routed to review.
	Complete bool `json:"complete"`
	// Warning carries the semantic backend error, if any, for surfacing to
	// the caller as a per-field warning rather than a fatal pipeline error.
	Warning string `json:"warning,omitempty"`
}

// Engine pairs the Levenshtein scorer with a semantic backend.
// Engines are stateless and safe for concurrent use.
type Engine struct {
	scorer  SemanticScorer
	timeout time.Duration
}

// NewEngine creates an engine. timeout bounds each semantic call; zero
// means 15 seconds.
func NewEngine(scorer SemanticScorer, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Engine{scorer: scorer, timeout: timeout}
}

// ScorePair computes both similarity signals for a raw/interpreted pair.
// Levenshtein scoring is CPU-only and never fails. Semantic scoring runs
// under the engine's timeout; on failure the result carries the textual
// score with Complete=false so the caller can force review. Scoring is
// all-or-nothing: downstream consumers never see a partially scored field.
func (e *Engine) ScorePair(ctx context.Context, rawText, interpretedText *string) Scores {
	s := Scores{
		Text: TextSimilarity(rawText, interpretedText),
	}

	scoreCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	semantic, err := SemanticSimilarity(scoreCtx, e.scorer, rawText, interpretedText)
	if err != nil {
		s.Warning = err.Error()
		return s
	}

	s.Semantic = semantic
	s.Complete = true
	return s
}
