package database

import (
	"fmt"

	"bidforecast/server/internal/models"
)

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&models.HistoryEntry{}); err != nil {
		return fmt.Errorf("failed to migrate listing_history table: %v", err)
	}

	// Batch ingestion and the admin lookups filter by category and first sighting
	err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listing_history_category_first_seen
		ON listing_history(main_category, first_seen_at);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create listing_history index: %v", err)
	}

	return nil
}
