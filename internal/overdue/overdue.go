// Package overdue evaluates scheduled tickets against the clock.
//
// The comparison always runs on absolute instants: the configured timezone
// offset is applied only when rendering times for humans, never to the
// overdue decision itself.
package overdue

import (
	"fmt"
	"time"

	"github.com/zulandar/millwright/internal/models"
	"github.com/zulandar/millwright/internal/settings"
	"gorm.io/gorm"
)

// IsOverdue reports whether t is overdue at now: a non-nil scheduled time,
// a status outside the closed set, and a scheduled instant strictly before
// now. A ticket scheduled for exactly now is not overdue.
func IsOverdue(t *models.Ticket, now time.Time, closed []string) bool {
	if t.ScheduledAt == nil {
		return false
	}
	for _, c := range closed {
		if t.Status == c {
			return false
		}
	}
	return t.ScheduledAt.Before(now)
}

// DelayText formats now-scheduled as whole hours and remaining minutes,
// e.g. "3h 12min"; delays under an hour render minutes only.
func DelayText(scheduled, now time.Time) string {
	delay := now.Sub(scheduled)
	hours := int(delay / time.Hour)
	minutes := int(delay%time.Hour) / int(time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dmin", hours, minutes)
	}
	return fmt.Sprintf("%dmin", minutes)
}

// LocalDisplay renders a UTC instant as a local-time string using the
// configured display offset.
func LocalDisplay(t time.Time, offsetHours int) string {
	return t.UTC().Add(time.Duration(offsetHours) * time.Hour).Format("2006-01-02 15:04")
}

// View is one overdue ticket prepared for display.
type View struct {
	TicketID       uint            `json:"ticket_id"`
	Code           string          `json:"code"`
	Title          string          `json:"title"`
	Priority       string          `json:"priority"`
	Status         string          `json:"status"`
	MachineType    string          `json:"machine_type"`
	MachineModel   string          `json:"machine_model"`
	Assignee       models.Assignee `json:"assignee"`
	ScheduledLocal string          `json:"scheduled_local"`
	Delay          string          `json:"delay"`
}

// List returns all overdue active tickets, oldest scheduled first. The
// closed-status set and display offset come from runtime settings on every
// call, not from compiled constants.
func List(db *gorm.DB, st *settings.Store, now time.Time) ([]View, error) {
	closed := st.ClosedStatuses()
	offset := st.TimezoneOffset()

	var tickets []models.Ticket
	err := db.Preload("Machine").
		Where("scheduled_at IS NOT NULL AND deleted_at IS NULL").
		Where("status NOT IN ?", closed).
		Where("scheduled_at < ?", now).
		Order("scheduled_at ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("overdue: list: %w", err)
	}

	views := make([]View, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		v := View{
			TicketID:       t.ID,
			Code:           t.Code,
			Title:          t.Title,
			Priority:       t.Priority,
			Status:         t.Status,
			Assignee:       t.Assignee,
			ScheduledLocal: LocalDisplay(*t.ScheduledAt, offset),
			Delay:          DelayText(*t.ScheduledAt, now),
		}
		if t.Machine != nil {
			v.MachineType = t.Machine.MachineType
			v.MachineModel = t.Machine.Model
		}
		views = append(views, v)
	}
	return views, nil
}
