package models

import "time"

// Machine statuses. When a ticket toggles its machine-down flag the machine's
// status becomes the projection of that flag, overriding whatever status it
// held before.
const (
	MachineOperational  = "operational"
	MachineMaintenance  = "maintenance"
	MachineOutOfService = "out_of_service"
)

// Machine is a piece of physical equipment tickets are filed against.
type Machine struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	MachineType  string     `gorm:"size:64;not null;index" json:"machine_type"`
	Model        string     `gorm:"size:128" json:"model"`
	SerialNumber string     `gorm:"size:128;uniqueIndex" json:"serial_number"`
	Location     string     `gorm:"size:128" json:"location"`
	Status       string     `gorm:"size:24;default:operational" json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}
