// Package sweep runs the scheduled overdue check: it finds assigned tickets
// whose scheduled time has passed and fans out webhook and push
// notifications, deduplicated so a ticket isn't renotified every minute.
package sweep

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/zulandar/millwright/internal/export"
	"github.com/zulandar/millwright/internal/models"
	"github.com/zulandar/millwright/internal/notify"
	"github.com/zulandar/millwright/internal/overdue"
	"github.com/zulandar/millwright/internal/settings"
	"gorm.io/gorm"
)

const notificationTypeOverdue = "overdue_scheduled"

// Opts holds parameters for creating a sweep Daemon.
type Opts struct {
	DB             *gorm.DB
	Settings       *settings.Store
	Exporter       *export.Client
	Sink           notify.Sink // optional; nil disables pushes
	Cron           string      // 5-field cron expression
	AssigneeDedupe time.Duration
	AdminDedupe    time.Duration
	Now            func() time.Time
	Out            io.Writer
}

// Daemon is the overdue sweep scheduler.
type Daemon struct {
	db             *gorm.DB
	settings       *settings.Store
	exporter       *export.Client
	sink           notify.Sink
	cron           string
	assigneeDedupe time.Duration
	adminDedupe    time.Duration
	now            func() time.Time
	out            io.Writer
}

// NewDaemon creates a sweep Daemon.
func NewDaemon(opts Opts) (*Daemon, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("sweep: db is required")
	}
	if opts.Settings == nil {
		return nil, fmt.Errorf("sweep: settings store is required")
	}
	if opts.Exporter == nil {
		return nil, fmt.Errorf("sweep: exporter is required")
	}
	if opts.Cron == "" {
		opts.Cron = "* * * * *"
	}
	if opts.AssigneeDedupe == 0 {
		opts.AssigneeDedupe = 5 * time.Minute
	}
	if opts.AdminDedupe == 0 {
		opts.AdminDedupe = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Daemon{
		db:             opts.DB,
		settings:       opts.Settings,
		exporter:       opts.Exporter,
		sink:           opts.Sink,
		cron:           opts.Cron,
		assigneeDedupe: opts.AssigneeDedupe,
		adminDedupe:    opts.AdminDedupe,
		now:            opts.Now,
		out:            opts.Out,
	}, nil
}

// Run blocks, firing Check on the configured cron schedule until ctx is
// cancelled. A failed check is logged and the loop keeps going.
func (d *Daemon) Run(ctx context.Context) error {
	first := nextCronDuration(d.cron)
	if first == 0 {
		return fmt.Errorf("sweep: invalid cron expression %q", d.cron)
	}
	fmt.Fprintf(d.out, "Sweep running (cron %q)\n", d.cron)

	timer := time.NewTimer(first)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Sweep stopped\n")
			return nil
		case <-timer.C:
			if _, err := d.Check(ctx); err != nil {
				log.Printf("sweep: check: %v", err)
			}
			if next := nextCronDuration(d.cron); next > 0 {
				timer.Reset(next)
			}
		}
	}
}

// Result summarizes one sweep pass.
type Result struct {
	Overdue  int // tickets past their scheduled time
	Notified int // tickets that got a webhook this pass
	Pushed   int // push deliveries attempted this pass
}

/// Check runs one overdue pass. Everything in here is best-effort: individual
// ticket failures are logged and the pass continues.
func (d *Daemon) Check(ctx context.Context) (Result, error) {
	now := d.now()
	closed := d.settings.ClosedStatuses()

	var tickets []models.Ticket
	err := d.db.Preload("Machine").
		Where("assigned_to IS NOT NULL AND scheduled_at IS NOT NULL AND deleted_at IS NULL").
		Where("status NOT IN ?", closed).
		Where("scheduled_at < ?", now).
		Order("scheduled_at ASC").
		Find(&tickets).Error
	if err != nil {
		return Result{}, fmt.Errorf("sweep: list overdue: %w", err)
	}

	res := Result{Overdue: len(tickets)}
	for i := range tickets {
		t := &tickets[i]

		// One webhook per (ticket, scheduled date): a rescheduled ticket gets
		// a fresh notification, an unchanged one stays quiet.
		scheduledKey := t.ScheduledAt.UTC().Format(time.RFC3339)
		var prior int64
		err := d.db.Model(&models.WebhookNotification{}).
			Where("ticket_id = ? AND notification_type = ? AND scheduled_date_notified = ?",
				t.ID, notificationTypeOverdue, scheduledKey).
			Count(&prior).Error
		if err != nil {
			log.Printf("sweep: dedupe check for %s: %v", t.Code, err)
			continue
		}
		if prior > 0 {
			continue
		}

		d.notifyTicket(ctx, t, now, scheduledKey, &res)
	}

	fmt.Fprintf(d.out, "Sweep pass: %d overdue, %d notified, %d pushes\n",
		res.Overdue, res.Notified, res.Pushed)
	return res, nil
}

// notifyTicket sends the webhook plus assignee and admin pushes for one
// overdue ticket and records every attempt.
func (d *Daemon) notifyTicket(ctx context.Context, t *models.Ticket, now time.Time, scheduledKey string, res *Result) {
	offset := d.settings.TimezoneOffset()
	delay := overdue.DelayText(*t.ScheduledAt, now)

	payload := map[string]interface{}{
		"event_type":     "ticket_overdue",
		"timestamp":      now.UTC().Format(time.RFC3339),
		"source":         "millwright",
		"ticket_id":      t.Code,
		"title":          t.Title,
		"priority":       t.Priority,
		"status":         t.Status,
		"assigned_to":    t.Assignee,
		"reporter":       t.ReporterName,
		"overdue_text":   delay,
		"scheduled_date": overdue.LocalDisplay(*t.ScheduledAt, offset),
		"created_at":     overdue.LocalDisplay(t.CreatedAt, offset),
	}
	if t.Machine != nil {
		payload["machine_type"] = t.Machine.MachineType
		payload["model"] = t.Machine.Model
	}

	url := d.settings.WebhookURL()
	record := models.WebhookNotification{
		TicketID:              t.ID,
		NotificationType:      notificationTypeOverdue,
		WebhookURL:            url,
		SentAt:                now,
		ScheduledDateNotified: scheduledKey,
	}
	if url == "" {
		record.WebhookURL = "NOT_CONFIGURED"
		record.ResponseBody = "webhook not configured"
	} else {
		status, body, err := d.exporter.Send(ctx, url, payload)
		if err != nil {
			log.Printf("sweep: webhook for %s: %v", t.Code, err)
			record.ResponseBody = err.Error()
		} else {
			record.ResponseStatus = status
			record.ResponseBody = body
		}
	}
	if err := d.db.Create(&record).Error; err != nil {
		log.Printf("sweep: record webhook for %s: %v", t.Code, err)
	}
	res.Notified++

	// Assignee push, deduped over a short window so a ticket created already
	// overdue doesn't get a creation push and a sweep push back to back.
	if assigneeID, ok := t.Assignee.UserID(); ok {
		if d.recentPush(assigneeID, t.ID, d.assigneeDedupe, now) {
			log.Printf("sweep: skip assignee push for %s (recent push)", t.Code)
		} else {
			d.push(ctx, assigneeID, t, fmt.Sprintf("%s, ticket overdue", d.userName(assigneeID)),
				fmt.Sprintf("%s: %s - overdue %s", t.Code, t.Title, delay), res)
		}
	}

	// Admin pushes, deduped over a long window to avoid spamming.
	var admins []models.User
	if err := d.db.Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		log.Printf("sweep: list admins for %s: %v", t.Code, err)
		return
	}
	for _, admin := range admins {
		if d.recentPush(admin.ID, t.ID, d.adminDedupe, now) {
			continue
		}
		d.push(ctx, admin.ID, t, fmt.Sprintf("%s, ticket overdue", admin.DisplayName()),
			fmt.Sprintf("%s: %s - overdue %s", t.Code, t.Title, delay), res)
	}
}

// recentPush reports whether a push for (user, ticket) was logged inside the
// window.
func (d *Daemon) recentPush(userID, ticketID uint, window time.Duration, now time.Time) bool {
	var count int64
	err := d.db.Model(&models.NotificationLog{}).
		Where("user_id = ? AND ticket_id = ? AND created_at >= ?", userID, ticketID, now.Add(-window)).
		Count(&count).Error
	if err != nil {
		log.Printf("sweep: push dedupe check: %v", err)
		return false
	}
	return count > 0
}

// push attempts one delivery and records the outcome in the notification log.
func (d *Daemon) push(ctx context.Context, userID uint, t *models.Ticket, title, body string, res *Result) {
	row := models.NotificationLog{UserID: userID, TicketID: t.ID}
	if d.sink == nil {
		row.Status = models.DeliveryNoSubscription
	} else {
		err := d.sink.Send(ctx, userID, notify.Push{
			Title: title,
			Body:  body,
			Icon:  "/icon-192.png",
			Data: notify.PushData{
				TicketID:    t.ID,
				DisplayCode: t.Code,
				URL:         fmt.Sprintf("/?ticket=%d", t.ID),
			},
		})
		if err != nil {
			row.Status = models.DeliveryFailed
			row.ErrorMessage = err.Error()
			log.Printf("sweep: push to user %d for %s: %v", userID, t.Code, err)
		} else {
			row.Status = models.DeliverySuccess
		}
	}
	if err := d.db.Create(&row).Error; err != nil {
		log.Printf("sweep: log push for %s: %v", t.Code, err)
	}
	res.Pushed++
}

func (d *Daemon) userName(id uint) string {
	var u models.User
	if err := d.db.First(&u, id).Error; err != nil {
		return "Technician"
	}
	return u.DisplayName()
}
