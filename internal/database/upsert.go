package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flipradar/server/internal/models"
)

// UpsertObjects writes a batch of observed objects, replacing existing rows
// by id. Used by the batch processor inside a gorm transaction.
func UpsertObjects(tx *gorm.DB, objects []*models.RealEstateObject) error {
	if len(objects) == 0 {
		return nil
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(objects).Error
	if err != nil {
		return fmt.Errorf("failed to upsert objects: %w", err)
	}
	return nil
}
