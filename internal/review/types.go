// Package review decides which extracted chart fields need human
// confirmation, combining the two similarity signals against per-field
// configurable thresholds.
package review

import "time"

const (
	// DefaultTextThreshold is the fallback minimum character-level
	// similarity for accepting a field without review.
	DefaultTextThreshold = 0.8

	// DefaultSemanticThreshold is the fallback minimum meaning-level
	// similarity for accepting a field without review.
	DefaultSemanticThreshold = 0.8
)

// FieldThresholds holds the per-field review gates. Both values live in
// [0, 1]; out-of-range configuration is clamped, never rejected.
type FieldThresholds struct {
	Text     float64 `json:"text_similarity_threshold"`
	Semantic float64 `json:"semantic_similarity_threshold"`
}

// DefaultThresholds returns the global fallback thresholds, used when a
// template has no entry for a field name.
func DefaultThresholds() FieldThresholds {
	return FieldThresholds{
		Text:     DefaultTextThreshold,
		Semantic: DefaultSemanticThreshold,
	}
}

// Item is one extracted field with its scores and review state.
//
// The legacy system stored the semantic similarity under the misleading
// name "confidence_score"; here it is SemanticScore, but the stored values
// and the comparison policy are unchanged.
type Item struct {
	Name            string  `json:"item_name"`
	RawText         *string `json:"raw_text"`
	InterpretedText *string `json:"interpreted_text"`

	TextScore     float64 `json:"similarity_score"`
	SemanticScore float64 `json:"semantic_similarity_score"`

	// ScoreIncomplete marks a field whose semantic score could not be
	// computed (backend timeout or failure). Such fields are always
	// routed to review.
	ScoreIncomplete bool   `json:"score_incomplete,omitempty"`
	Warning         string `json:"warning,omitempty"`

	NeedsReview bool `json:"needs_review"`

	// Set only by an explicit human review action.
	ReviewComment *string    `json:"review_comment"`
	ReviewedBy    *string    `json:"reviewed_by"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
}

// Reviewed reports whether a human has already signed off on this item.
func (i Item) Reviewed() bool {
	return i.ReviewedBy != nil && *i.ReviewedBy != ""
}
