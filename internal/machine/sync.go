package machine

import (
	"fmt"
	"log"

	"github.com/zulandar/millwright/internal/alert"
	"github.com/zulandar/millwright/internal/models"
	"gorm.io/gorm"
)

// Synchronizer projects a ticket's machine-down flag onto the machine's
// status and manages the auto broadcast alert tied to it.
//
// The ticket write and the machine-status write are separate statements with
// no wrapping transaction: a crash between the two leaves the machine status
// stale relative to the ticket flag until the flag is toggled again. That
// window is accepted, not guaranteed against.
type Synchronizer struct {
	db *gorm.DB
}

// NewSynchronizer creates a Synchronizer over db.
func NewSynchronizer(db *gorm.DB) *Synchronizer {
	return &Synchronizer{db: db}
}

// Apply is invoked when a ticket's machine-down flag actually changes (or is
// true on a brand-new ticket, with oldDown false). Machine-status errors are
// returned because the status projection is a core invariant; alert-table
// errors are logged and swallowed because the broadcast display is a side
// channel that must not fail the surrounding mutation.
func (s *Synchronizer) Apply(t *models.Ticket, oldDown, newDown bool, actorID uint) error {
	if oldDown == newDown {
		return nil
	}

	m, err := Get(s.db, t.MachineID)
	if err != nil {
		return fmt.Errorf("machine: sync ticket %s: %w", t.Code, err)
	}

	if newDown {
		if err := SetStatus(s.db, m.ID, models.MachineOutOfService); err != nil {
			return err
		}
		if _, err := alert.CreateAuto(s.db, t, m); err != nil {
			log.Printf("machine: auto alert for %s: %v", t.Code, err)
		}
		return s.appendTimeline(t, actorID, models.ActionMachineStopped,
			fmt.Sprintf("machine %d stopped via %s", m.ID, t.Code))
	}

	if err := SetStatus(s.db, m.ID, models.MachineOperational); err != nil {
		return err
	}
	// Only one auto alert should exist per machine, but clear all of them in
	// case an earlier delete was lost.
	if err := alert.DeleteAutoForMachine(s.db, m.ID); err != nil {
		log.Printf("machine: clear auto alerts for %s: %v", t.Code, err)
	}
	return s.appendTimeline(t, actorID, models.ActionMachineRestored,
		fmt.Sprintf("machine %d restored via %s", m.ID, t.Code))
}

func (s *Synchronizer) appendTimeline(t *models.Ticket, actorID uint, action, note string) error {
	entry := models.TimelineEntry{
		TicketID: t.ID,
		UserID:   actorID,
		Action:   action,
		Note:     note,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("machine: timeline for %s: %w", t.Code, err)
	}
	return nil
}
