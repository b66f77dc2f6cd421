package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// Tag filters use jsonb containment.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_bill_tags_gin ON bill USING gin (tags)`).Error; err != nil {
		return fmt.Errorf("bill tags index: %w", err)
	}
	return nil
}
