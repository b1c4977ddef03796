package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kartescan/kartescan/internal/review"
)

// CreateTemplate persists a template and its items.
func (s *Store) CreateTemplate(tpl *Template) error {
	for i := range tpl.Items {
		tpl.Items[i].Position = i
	}
	if err := s.db.Create(tpl).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	s.logger.Info("template created", "template_id", tpl.ID, "name", tpl.Name, "items", len(tpl.Items))
	return nil
}

// GetTemplate loads a template with its items ordered by position.
func (s *Store) GetTemplate(id string) (*Template, error) {
	var tpl Template
	err := s.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&tpl, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	return &tpl, nil
}

// ListTemplates returns all templates with their items.
func (s *Store) ListTemplates() ([]Template, error) {
	var templates []Template
	err := s.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at ASC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// UpdateTemplate replaces a template's name, description, and item set.
func (s *Store) UpdateTemplate(tpl *Template) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing Template
		if err := tx.First(&existing, "id = ?", tpl.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("template %s: %w", tpl.ID, ErrNotFound)
			}
			return err
		}

		if err := tx.Where("template_id = ?", tpl.ID).Delete(&TemplateItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear template items: %w", err)
		}

		for i := range tpl.Items {
			tpl.Items[i].ID = ""
			tpl.Items[i].TemplateID = tpl.ID
			tpl.Items[i].Position = i
		}
		if len(tpl.Items) > 0 {
			if err := tx.Create(&tpl.Items).Error; err != nil {
				return fmt.Errorf("failed to store template items: %w", err)
			}
		}

		updates := map[string]any{
			"name":        tpl.Name,
			"description": tpl.Description,
		}
		return tx.Model(&Template{}).Where("id = ?", tpl.ID).Updates(updates).Error
	})
}

// DeleteTemplate removes a template and its items.
func (s *Store) DeleteTemplate(id string) error {
	res := s.db.Delete(&Template{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetThresholds returns the per-field review thresholds of a template.
func (s *Store) GetThresholds(templateID string) (map[string]review.FieldThresholds, error) {
	tpl, err := s.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	return ThresholdMap(tpl.Items), nil
}

// PutThresholds updates thresholds for the named fields of a template.
// Fields not present in the template are rejected.
func (s *Store) PutThresholds(templateID string, thresholds map[string]review.FieldThresholds) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var items []TemplateItem
		if err := tx.Where("template_id = ?", templateID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load template items: %w", err)
		}
		if len(items) == 0 {
			return fmt.Errorf("template %s: %w", templateID, ErrNotFound)
		}

		known := make(map[string]*TemplateItem, len(items))
		for i := range items {
			known[items[i].Name] = &items[i]
		}
		for name := range thresholds {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("field %q not in template %s", name, templateID)
			}
		}

		for name, th := range thresholds {
			item := known[name]
			err := tx.Model(&TemplateItem{}).
				Where("id = ?", item.ID).
				Updates(map[string]any{
					"text_threshold":     th.Text,
					"semantic_threshold": th.Semantic,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to update thresholds for %q: %w", name, err)
			}
		}
		return nil
	})
}

// ResetThresholds restores every item of a template to the defaults.
func (s *Store) ResetThresholds(templateID string) error {
	res := s.db.Model(&TemplateItem{}).
		Where("template_id = ?", templateID).
		Updates(map[string]any{
			"text_threshold":     review.DefaultTextThreshold,
			"semantic_threshold": review.DefaultSemanticThreshold,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to reset thresholds: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("template %s: %w", templateID, ErrNotFound)
	}
	s.logger.Info("thresholds reset", "template_id", templateID)
	return nil
}
