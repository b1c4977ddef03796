package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// CreateChart persists a newly uploaded chart.
func (s *Store) CreateChart(chart *Chart) error {
	if err := s.db.Create(chart).Error; err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	s.logger.Info("chart created", "chart_id", chart.ID, "filename", chart.Filename)
	return nil
}

// GetChart loads a chart with its extracted fields, ordered by position.
func (s *Store) GetChart(id string) (*Chart, error) {
	var chart Chart
	err := s.db.
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&chart, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chart %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chart: %w", err)
	}
	return &chart, nil
}

// ListCharts returns charts newest-first, without their field sets.
func (s *Store) ListCharts(limit, offset int) ([]Chart, error) {
	if limit <= 0 {
		limit = 50
	}
	var charts []Chart
	err := s.db.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&charts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list charts: %w", err)
	}
	return charts, nil
}

// UpdateChartStatus transitions a chart's processing status.
func (s *Store) UpdateChartStatus(id string, status ProcessStatus, errorMessage string) error {
	updates := map[string]any{
		"status":        status,
		"error_message": errorMessage,
	}
	res := s.db.Model(&Chart{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update chart status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chart %s: %w", id, ErrNotFound)
	}
	s.logger.Info("chart status updated", "chart_id", id, "status", status)
	return nil
}

// DeleteChart removes a chart and, via cascade, its fields.
func (s *Store) DeleteChart(id string) error {
	res := s.db.Delete(&Chart{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete chart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chart %s: %w", id, ErrNotFound)
	}
	return nil
}
