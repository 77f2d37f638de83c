package ticket

import (
	"fmt"
	"time"

	"github.com/zulandar/millwright/internal/models"
)

// Changes is a partial update. Nil pointers mean "leave alone". ScheduledAt
// uses an explicit presence flag so callers can distinguish "don't touch"
// from "clear": a cleared date and a never-set date are stored identically
// (both NULL), matching the upstream system's behavior.
type Changes struct {
	Title          *string
	Description    *string
	Status         *string
	Priority       *string
	Assignee       *models.Assignee
	SetScheduledAt bool
	ScheduledAt    *time.Time
	SetMachineDown *bool
	Note           string // optional timeline comment
}

// Update validates and applies a partial change under role-based rules, then
// appends timeline entries and hands the event to the notifier. Reporter-tier
// actors may only mutate their own tickets and never change status; moving to
// completed stamps the completion timestamp; assigning to nobody clears the
// scheduled time in the same operation.
func (s *Service) Update(id uint, actor Actor, ch Changes) (*models.Ticket, error) {
	t, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if actor.reporterTier() {
		if t.ReportedBy != actor.UserID {
			return nil, ErrPermissionDenied
		}
		if ch.Status != nil && *ch.Status != t.Status {
			return nil, ErrPermissionDenied
		}
	}

	if ch.Status != nil && !models.ValidStatus(*ch.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, *ch.Status)
	}
	if ch.Priority != nil && !models.ValidPriority(*ch.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalid, *ch.Priority)
	}

	updates := map[string]interface{}{}
	var genericChange bool

	if ch.Title != nil && *ch.Title != t.Title {
		if len(*ch.Title) < 3 || len(*ch.Title) > 200 {
			return nil, fmt.Errorf("%w: title must be 3-200 characters", ErrInvalid)
		}
		updates["title"] = *ch.Title
		genericChange = true
	}
	if ch.Description != nil && *ch.Description != t.Description {
		updates["description"] = *ch.Description
		genericChange = true
	}
	if ch.Priority != nil && *ch.Priority != t.Priority {
		updates["priority"] = *ch.Priority
		genericChange = true
	}

	statusChanged := ch.Status != nil && *ch.Status != t.Status
	oldStatus := t.Status
	if statusChanged {
		updates["status"] = *ch.Status
		if *ch.Status == models.StatusCompleted {
			updates["completed_at"] = s.now()
		}
	}

	oldAssignee := t.Assignee
	assigneeChanged := ch.Assignee != nil && !ch.Assignee.Equal(t.Assignee)
	if assigneeChanged {
		updates["assigned_to"] = *ch.Assignee
		// De-scheduling is implicit in de-assigning.
		if ch.Assignee.IsUnassigned() {
			updates["scheduled_at"] = nil
		}
	}

	if ch.SetScheduledAt && !(assigneeChanged && ch.Assignee.IsUnassigned()) {
		if ch.ScheduledAt == nil {
			if t.ScheduledAt != nil {
				updates["scheduled_at"] = nil
				genericChange = true
			}
		} else if t.ScheduledAt == nil || !t.ScheduledAt.Equal(*ch.ScheduledAt) {
			updates["scheduled_at"] = *ch.ScheduledAt
			genericChange = true
		}
	}

	oldDown := t.IsMachineDown
	downToggled := ch.SetMachineDown != nil && *ch.SetMachineDown != t.IsMachineDown
	if downToggled {
		updates["is_machine_down"] = *ch.SetMachineDown
	}

	if len(updates) == 0 {
		return t, nil
	}

	err = s.db.Model(&models.Ticket{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("ticket: update %d: %w", id, err)
	}

	// One summarizing entry per update: "status changed" wins over "updated";
	// assignment changes get a dedicated entry on top.
	if statusChanged {
		entry := models.TimelineEntry{
			TicketID:  t.ID,
			UserID:    actor.UserID,
			Action:    models.ActionStatusChanged,
			OldStatus: strptr(oldStatus),
			NewStatus: ch.Status,
			Note:      ch.Note,
		}
		if err := s.db.Create(&entry).Error; err != nil {
			return nil, fmt.Errorf("ticket: timeline for %s: %w", t.Code, err)
		}
	} else if genericChange {
		entry := models.TimelineEntry{
			TicketID: t.ID,
			UserID:   actor.UserID,
			Action:   models.ActionUpdated,
			Note:     ch.Note,
		}
		if err := s.db.Create(&entry).Error; err != nil {
			return nil, fmt.Errorf("ticket: timeline for %s: %w", t.Code, err)
		}
	}
	if assigneeChanged {
		entry := models.TimelineEntry{
			TicketID: t.ID,
			UserID:   actor.UserID,
			Action:   models.ActionAssigned,
			Note:     fmt.Sprintf("%s -> %s", oldAssignee, *ch.Assignee),
		}
		if err := s.db.Create(&entry).Error; err != nil {
			return nil, fmt.Errorf("ticket: timeline for %s: %w", t.Code, err)
		}
	}

	updated, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if downToggled {
		if err := s.sync.Apply(updated, oldDown, updated.IsMachineDown, actor.UserID); err != nil {
			return nil, err
		}
	}

	if s.notifier != nil {
		ev := UpdateEvent{
			ActorID:         actor.UserID,
			ReporterIsActor: actor.UserID == updated.ReportedBy,
			StatusChanged:   statusChanged,
			OldStatus:       oldStatus,
			NewStatus:       updated.Status,
			AssigneeChanged: assigneeChanged,
			OldAssignee:     oldAssignee,
			NewAssignee:     updated.Assignee,
		}
		after := *updated
		s.background(func() { s.notifier.OnUpdated(&after, ev) })
	}
	return updated, nil
}
