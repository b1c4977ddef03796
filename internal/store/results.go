package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ReplaceResult atomically swaps a chart's field set for the output of a
// new extraction run. Prior review annotations do not survive the swap;
// the incoming items carry whatever state the caller wants retained.
func (s *Store) ReplaceResult(chartID string, result *ExtractionResult, fields []ExtractedField, overallConfidence float64, status ProcessStatus) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var chart Chart
		if err := tx.First(&chart, "id = ?", chartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("chart %s: %w", chartID, ErrNotFound)
			}
			return err
		}

		if err := tx.Where("chart_id = ?", chartID).Delete(&ExtractedField{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous fields: %w", err)
		}

		result.ChartID = chartID
		if err := tx.Create(result).Error; err != nil {
			return fmt.Errorf("failed to record extraction run: %w", err)
		}

		for i := range fields {
			fields[i].ChartID = chartID
		}
		if len(fields) > 0 {
			if err := tx.Create(&fields).Error; err != nil {
				return fmt.Errorf("failed to store fields: %w", err)
			}
		}

		updates := map[string]any{
			"status":             status,
			"overall_confidence": overallConfidence,
		}
		return tx.Model(&Chart{}).Where("id = ?", chartID).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	s.logger.Info("extraction result stored",
		"chart_id", chartID,
		"fields", len(fields),
		"status", status,
		"overall_confidence", overallConfidence)
	return nil
}

// ListResults returns the extraction run history for a chart, newest-first.
func (s *Store) ListResults(chartID string) ([]ExtractionResult, error) {
	var results []ExtractionResult
	err := s.db.
		Where("chart_id = ?", chartID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list extraction results: %w", err)
	}
	return results, nil
}

// ListReviewItems returns the fields of a chart flagged for human review.
func (s *Store) ListReviewItems(chartID string) ([]ExtractedField, error) {
	var fields []ExtractedField
	err := s.db.
		Where("chart_id = ? AND needs_review = ?", chartID, true).
		Order("position ASC").
		Find(&fields).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list review items: %w", err)
	}
	return fields, nil
}

// ReviewUpdate carries a reviewer's corrections for one field.
type ReviewUpdate struct {
	InterpretedText *string `json:"interpreted_text,omitempty"`
	ReviewComment   *string `json:"review_comment,omitempty"`
	ReviewedBy      string  `json:"reviewed_by"`
}

// ApplyReview records a human review on a field: updates the interpreted
// text if provided, stamps the reviewer, and clears the review flag.
// Scores are left as computed; the engine is not re-run on review.
func (s *Store) ApplyReview(chartID, fieldID string, upd ReviewUpdate) (*ExtractedField, error) {
	var field ExtractedField
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&field, "id = ? AND chart_id = ?", fieldID, chartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("field %s: %w", fieldID, ErrNotFound)
			}
			return err
		}

		now := time.Now().UTC()
		if upd.InterpretedText != nil {
			field.InterpretedText = upd.InterpretedText
		}
		if upd.ReviewComment != nil {
			field.ReviewComment = upd.ReviewComment
		}
		field.ReviewedBy = &upd.ReviewedBy
		field.ReviewedAt = &now
		field.NeedsReview = false

		return tx.Save(&field).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review applied",
		"chart_id", chartID,
		"field_id", fieldID,
		"field", field.Name,
		"reviewed_by", upd.ReviewedBy)
	return &field, nil
}
