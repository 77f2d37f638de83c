// Package machine provides machine lookups and the ticket-driven status
// synchronizer.
package machine

import (
	"errors"
	"fmt"

	"github.com/zulandar/millwright/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a machine doesn't exist or is soft-deleted.
var ErrNotFound = errors.New("machine: not found")

// Get retrieves a machine by ID, excluding soft-deleted rows.
func Get(db *gorm.DB, id uint) (*models.Machine, error) {
	var m models.Machine
	err := db.Where("id = ? AND deleted_at IS NULL", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("machine: get %d: %w", id, err)
	}
	return &m, nil
}

// List returns all machines, excluding soft-deleted rows.
func List(db *gorm.DB) ([]models.Machine, error) {
	var machines []models.Machine
	err := db.Where("deleted_at IS NULL").
		Order("machine_type ASC, id ASC").Find(&machines).Error
	if err != nil {
		return nil, fmt.Errorf("machine: list: %w", err)
	}
	return machines, nil
}

// SetStatus writes a machine's status directly.
func SetStatus(db *gorm.DB, id uint, status string) error {
	result := db.Model(&models.Machine{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("machine: set status of %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
