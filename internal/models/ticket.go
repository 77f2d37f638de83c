// Package models defines the GORM models shared across Millwright.
package models

import "time"

// Ticket statuses. The set of statuses considered closed for active/overdue
// filtering is runtime-configurable (see internal/settings); these constants
// cover the statuses the core itself assigns.
const (
	StatusReceived     = "received"
	StatusDiagnostic   = "diagnostic"
	StatusInProgress   = "in_progress"
	StatusWaitingParts = "waiting_parts"
	StatusCompleted    = "completed"
	StatusArchived     = "archived"
)

// Ticket priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ValidStatuses lists the statuses a ticket can be moved to.
var ValidStatuses = []string{
	StatusReceived, StatusDiagnostic, StatusInProgress,
	StatusWaitingParts, StatusCompleted, StatusArchived,
}

// ValidPriorities lists accepted ticket priorities.
var ValidPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Ticket is a maintenance request against a machine. Rows are never
// hard-deleted by the core; DeletedAt marks soft deletion and is filtered
// explicitly in queries (a direct Get by ID still returns the row).
type Ticket struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Code          string     `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	Priority      string     `gorm:"size:16;default:medium;index" json:"priority"`
	Status        string     `gorm:"size:24;default:received;index" json:"status"`
	ReportedBy    uint       `gorm:"index" json:"reported_by"`
	ReporterName  string     `gorm:"size:128" json:"reporter_name"`
	Assignee      Assignee   `gorm:"column:assigned_to" json:"assigned_to"`
	MachineID     uint       `gorm:"index" json:"machine_id"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
	IsMachineDown bool       `gorm:"default:false" json:"is_machine_down"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	DeletedAt     *time.Time `gorm:"index" json:"deleted_at,omitempty"`

	Machine  *Machine        `gorm:"foreignKey:MachineID" json:"machine,omitempty"`
	Reporter *User           `gorm:"foreignKey:ReportedBy" json:"reporter,omitempty"`
	Timeline []TimelineEntry `gorm:"foreignKey:TicketID" json:"timeline,omitempty"`
}

// Deleted reports whether the ticket has been soft-deleted.
func (t *Ticket) Deleted() bool {
	return t.DeletedAt != nil
}

// ValidStatus reports whether s is a status the core can assign.
func ValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ValidPriority reports whether p is an accepted priority.
func ValidPriority(p string) bool {
	for _, v := range ValidPriorities {
		if v == p {
			return true
		}
	}
	return false
}
