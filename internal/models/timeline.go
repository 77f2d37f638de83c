package models

import "time"

// Timeline entry actions written by the core.
const (
	ActionCreated         = "ticket created"
	ActionStatusChanged   = "status changed"
	ActionUpdated         = "updated"
	ActionAssigned        = "assignment changed"
	ActionMachineStopped  = "machine stopped"
	ActionMachineRestored = "machine restored"
)

// TimelineEntry is one row of a ticket's append-only history. Entries are
// never updated or deleted.
type TimelineEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TicketID  uint      `gorm:"index;not null" json:"ticket_id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Action    string    `gorm:"size:64;not null" json:"action"`
	OldStatus *string   `gorm:"size:24" json:"old_status,omitempty"`
	NewStatus *string   `gorm:"size:24" json:"new_status,omitempty"`
	Note      string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
