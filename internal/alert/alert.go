// Package alert manages broadcast display alerts for the plant wall screens.
package alert

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/millwright/internal/models"
	"gorm.io/gorm"
)

// autoDisplaySeconds bounds how long an auto machine-down alert holds the
// screen per rotation.
const autoDisplaySeconds = 60

// CreateOpts holds parameters for a manually authored alert.
type CreateOpts struct {
	Title          string
	Message        string
	Priority       string // info, warning, critical
	DisplaySeconds int
	MachineID      *uint
	ExpiresAt      *time.Time
	CreatedBy      uint
}

// Create creates a manual alert. Manual alerts are disjoint from the
// auto-generated machine-down set and are unaffected by its lifecycle.
func Create(db *gorm.DB, opts CreateOpts) (*models.Alert, error) {
	if opts.Title == "" {
		return nil, fmt.Errorf("alert: title is required")
	}
	if opts.Priority == "" {
		opts.Priority = "info"
	}
	if opts.DisplaySeconds <= 0 {
		opts.DisplaySeconds = 30
	}

	a := models.Alert{
		Title:          opts.Title,
		Message:        opts.Message,
		Priority:       opts.Priority,
		DisplaySeconds: opts.DisplaySeconds,
		MachineID:      opts.MachineID,
		ExpiresAt:      opts.ExpiresAt,
		CreatedBy:      opts.CreatedBy,
	}
	if err := db.Create(&a).Error; err != nil {
		return nil, fmt.Errorf("alert: create: %w", err)
	}
	return &a, nil
}

// CreateAuto creates the auto-generated alert for a machine-down ticket.
// At most one auto alert should exist per machine; the caller guards the
// transition, and DeleteAutoForMachine clears all of them on restore anyway.
func CreateAuto(db *gorm.DB, t *models.Ticket, m *models.Machine) (*models.Alert, error) {
	label := m.MachineType
	if m.Model != "" {
		label += " " + m.Model
	}
	a := models.Alert{
		TicketID:       &t.ID,
		MachineID:      &m.ID,
		Title:          fmt.Sprintf("Machine down: %s", label),
		Message:        fmt.Sprintf("%s: %s", t.Code, t.Title),
		Priority:       models.PriorityCritical,
		DisplaySeconds: autoDisplaySeconds,
		AutoGenerated:  true,
	}
	if err := db.Create(&a).Error; err != nil {
		return nil, fmt.Errorf("alert: create auto for machine %d: %w", m.ID, err)
	}
	return &a, nil
}

// DeleteAutoForMachine removes every auto-generated alert for a machine,
// regardless of which ticket created it. Rows are deleted, not hidden.
func DeleteAutoForMachine(db *gorm.DB, machineID uint) error {
	err := db.Where("machine_id = ? AND auto_generated = ?", machineID, true).
		Delete(&models.Alert{}).Error
	if err != nil {
		return fmt.Errorf("alert: delete auto for machine %d: %w", machineID, err)
	}
	return nil
}

// ListActive returns alerts to display: everything unexpired, newest first.
func ListActive(db *gorm.DB, now time.Time) ([]models.Alert, error) {
	var alerts []models.Alert
	err := db.Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at DESC").Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("alert: list active: %w", err)
	}
	return alerts, nil
}

// Delete removes an alert by ID.
func Delete(db *gorm.DB, id uint) error {
	result := db.Delete(&models.Alert{}, id)
	if result.Error != nil {
		return fmt.Errorf("alert: delete %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("alert: not found")
	}
	return nil
}
