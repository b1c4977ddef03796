package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kartescan/kartescan/internal/review"
)

// ProcessStatus tracks an extraction job through its lifecycle.
type ProcessStatus string

const (
	StatusPending        ProcessStatus = "PENDING"
	StatusProcessing     ProcessStatus = "PROCESSING"
	StatusCompleted      ProcessStatus = "COMPLETED"
	StatusPartialSuccess ProcessStatus = "PARTIAL_SUCCESS"
	StatusFailed         ProcessStatus = "FAILED"
)

// Chart is an uploaded chart image and its processing state.
type Chart struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Filename    string `gorm:"size:512" json:"filename"`
	ContentType string `gorm:"size:128" json:"content_type"`
	// BlobKey locates the uploaded image in the blob store.
	BlobKey    string        `gorm:"size:512" json:"blob_key"`
	TemplateID *string       `gorm:"size:36;index" json:"template_id,omitempty"`
	Status     ProcessStatus `gorm:"size:32;index;default:PENDING" json:"status"`
	// ErrorMessage holds the failure reason when Status is FAILED,
	// or a degradation note for PARTIAL_SUCCESS.
	ErrorMessage      string   `gorm:"size:2048" json:"error_message,omitempty"`
	OverallConfidence *float64 `json:"overall_confidence,omitempty"`

	Fields []ExtractedField `gorm:"foreignKey:ChartID;constraint:OnDelete:CASCADE" json:"fields,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID if none was set.
func (c *Chart) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ExtractionResult records one extraction run against a chart. The
// current field set always belongs to the latest run; older runs keep
// their metadata for auditing.
type ExtractionResult struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	ChartID string `gorm:"size:36;index" json:"chart_id"`

	Provider         string `gorm:"size:64" json:"provider"`
	Model            string `gorm:"size:128" json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	DurationMS       int64  `json:"duration_ms"`
	// Incomplete is set when semantic scoring was unavailable and the
	// run fell back to textual scores only.
	Incomplete bool `json:"incomplete"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID if none was set.
func (r *ExtractionResult) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ExtractedField is one named field of a chart: the transcription, the
// interpretation, its scores, and its review state.
type ExtractedField struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	ChartID string `gorm:"size:36;index" json:"chart_id"`

	Name            string  `gorm:"size:256" json:"item_name"`
	Position        int     `json:"position"`
	RawText         *string `gorm:"type:text" json:"raw_text"`
	InterpretedText *string `gorm:"type:text" json:"interpreted_text"`

	TextScore       float64 `json:"similarity_score"`
	SemanticScore   float64 `json:"semantic_similarity_score"`
	ScoreIncomplete bool    `json:"score_incomplete"`
	Warning         string  `gorm:"size:1024" json:"warning,omitempty"`

	NeedsReview   bool       `gorm:"index" json:"needs_review"`
	ReviewComment *string    `gorm:"type:text" json:"review_comment,omitempty"`
	ReviewedBy    *string    `gorm:"size:256" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID if none was set.
func (f *ExtractedField) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// Item converts the row into the review engine's representation.
func (f *ExtractedField) Item() review.Item {
	return review.Item{
		Name:            f.Name,
		RawText:         f.RawText,
		InterpretedText: f.InterpretedText,
		TextScore:       f.TextScore,
		SemanticScore:   f.SemanticScore,
		ScoreIncomplete: f.ScoreIncomplete,
		Warning:         f.Warning,
		NeedsReview:     f.NeedsReview,
		ReviewComment:   f.ReviewComment,
		ReviewedBy:      f.ReviewedBy,
		ReviewedAt:      f.ReviewedAt,
	}
}

// FieldFromItem builds a row from a scored review item.
func FieldFromItem(chartID string, position int, it review.Item) ExtractedField {
	return ExtractedField{
		ChartID:         chartID,
		Name:            it.Name,
		Position:        position,
		RawText:         it.RawText,
		InterpretedText: it.InterpretedText,
		TextScore:       it.TextScore,
		SemanticScore:   it.SemanticScore,
		ScoreIncomplete: it.ScoreIncomplete,
		Warning:         it.Warning,
		NeedsReview:     it.NeedsReview,
		ReviewComment:   it.ReviewComment,
		ReviewedBy:      it.ReviewedBy,
		ReviewedAt:      it.ReviewedAt,
	}
}

// Template names a set of fields to extract from a chart, each with
// its own review thresholds.
type Template struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"size:256;uniqueIndex" json:"name"`
	Description string `gorm:"size:1024" json:"description,omitempty"`

	Items []TemplateItem `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID if none was set.
func (t *Template) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TemplateItem is one field definition within a template.
type TemplateItem struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	TemplateID string `gorm:"size:36;index" json:"template_id"`

	Name     string `gorm:"size:256" json:"item_name"`
	Position int    `json:"position"`

	TextThreshold     float64 `gorm:"default:0.8" json:"text_similarity_threshold"`
	SemanticThreshold float64 `gorm:"default:0.8" json:"semantic_similarity_threshold"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID if none was set.
func (i *TemplateItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Thresholds returns the item's review thresholds.
func (i *TemplateItem) Thresholds() review.FieldThresholds {
	return review.FieldThresholds{
		Text:     i.TextThreshold,
		Semantic: i.SemanticThreshold,
	}
}

// ThresholdMap builds the per-field threshold lookup the review engine
// consumes. Fields absent from the map fall back to defaults there.
func ThresholdMap(items []TemplateItem) map[string]review.FieldThresholds {
	out := make(map[string]review.FieldThresholds, len(items))
	for _, it := range items {
		out[it.Name] = it.Thresholds()
	}
	return out
}
