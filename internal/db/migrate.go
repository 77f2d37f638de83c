package db

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/zulandar/millwright/internal/config"
	"github.com/zulandar/millwright/internal/models"
	"github.com/zulandar/millwright/internal/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Machine{},
		&models.Ticket{},
		&models.TimelineEntry{},
		&models.Alert{},
		&models.NotificationLog{},
		&models.WebhookNotification{},
		&models.Setting{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedSettings upserts the system_settings rows from configuration. Existing
// values are overwritten; `mw db init` is the explicit way to reset them.
func SeedSettings(db *gorm.DB, seed config.SeedSettings) error {
	closed, err := json.Marshal(seed.ClosedStatuses)
	if err != nil {
		return fmt.Errorf("db: marshal closed statuses: %w", err)
	}

	rows := []models.Setting{
		{Key: settings.KeyClosedStatuses, Value: string(closed)},
		{Key: settings.KeyTimezoneOffset, Value: strconv.Itoa(seed.TimezoneOffset)},
		{Key: settings.KeyWebhookURL, Value: seed.WebhookURL},
	}

	for _, row := range rows {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"setting_value"}),
		}).Create(&row)
		if result.Error != nil {
			return fmt.Errorf("db: seed setting %q: %w", row.Key, result.Error)
		}
	}
	return nil
}
