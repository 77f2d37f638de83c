package models

import "time"

// Alert is a broadcast display alert shown on the plant's wall screens.
// Auto-generated alerts are tied to a machine-down ticket and live exactly as
// long as the machine is down; manual alerts are authored by operators and
// are a disjoint set the auto lifecycle never touches.
type Alert struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	TicketID       *uint      `gorm:"index" json:"ticket_id,omitempty"`
	MachineID      *uint      `gorm:"index" json:"machine_id,omitempty"`
	Title          string     `gorm:"size:200;not null" json:"title"`
	Message        string     `gorm:"type:text" json:"message"`
	Priority       string     `gorm:"size:16;default:info" json:"priority"`
	DisplaySeconds int        `gorm:"default:30" json:"display_seconds"`
	AutoGenerated  bool       `gorm:"default:false;index" json:"auto_generated"`
	CreatedBy      uint       `json:"created_by"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
