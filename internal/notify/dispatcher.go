package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zulandar/millwright/internal/models"
	"github.com/zulandar/millwright/internal/ticket"
	"gorm.io/gorm"
)

// sendTimeout bounds a single sink delivery. Timeouts are the dispatcher's
// problem and never propagate to the mutation caller.
const sendTimeout = 10 * time.Second

// Exporter forwards a mutation to the shadow webhook. Implementations are
// fire-and-forget: they log failures and return nothing.
type Exporter interface {
	Export(ctx context.Context, eventType string, t *models.Ticket)
}

// Shadow export event kinds.
const (
	EventTicketCreated = "ticket_created"
	EventTicketUpdated = "ticket_updated"
	EventTicketDeleted = "ticket_deleted"
)

// Opts holds parameters for creating a Dispatcher.
type Opts struct {
	DB       *gorm.DB
	Sink     Sink     // optional; nil records no_subscription for every target
	Exporter Exporter // optional; nil disables shadow export
}

// Dispatcher implements ticket.Notifier. All methods run after the mutation
// is durable (on the service's background func) and are best-effort.
type Dispatcher struct {
	db       *gorm.DB
	sink     Sink
	exporter Exporter
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts Opts) (*Dispatcher, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("notify: db is required")
	}
	return &Dispatcher{db: opts.DB, sink: opts.Sink, exporter: opts.Exporter}, nil
}

var _ ticket.Notifier = (*Dispatcher)(nil)

// OnCreated notifies the assignee (if one was set at creation) and exports
// the new ticket.
func (d *Dispatcher) OnCreated(t *models.Ticket) {
	if id, ok := t.Assignee.UserID(); ok {
		name := d.userName(id)
		d.sendPush(id, t, Push{
			Title: fmt.Sprintf("%s, new ticket", name),
			Body:  fmt.Sprintf("%s: %s (%s, %s)", t.Code, t.Title, t.Priority, d.machineLabel(t)),
			Icon:  "/icon-192.png",
			Data:  pushData(t),
		})
	}
	d.export(EventTicketCreated, t)
}

// OnUpdated routes an update event to the assignment and status handlers and
// exports the post-mutation state exactly once.
func (d *Dispatcher) OnUpdated(t *models.Ticket, ev ticket.UpdateEvent) {
	if ev.AssigneeChanged {
		d.OnAssignmentChanged(t, ev.OldAssignee, ev.NewAssignee)
	}
	if ev.StatusChanged && !ev.ReporterIsActor {
		d.OnStatusChanged(t, ev.OldStatus, ev.NewStatus)
	}
	d.export(EventTicketUpdated, t)
}

// OnDeleted exports the deletion. Nothing push-worthy happens here.
func (d *Dispatcher) OnDeleted(t *models.Ticket) {
	d.export(EventTicketDeleted, t)
}

// OnAssignmentChanged notifies the previous assignee that the ticket was
// taken from them and the new assignee that it is now theirs. The team
// sentinel is not a deliverable target on either side.
func (d *Dispatcher) OnAssignmentChanged(t *models.Ticket, oldA, newA models.Assignee) {
	if id, ok := oldA.UserID(); ok {
		name := d.userName(id)
		d.sendPush(id, t, Push{
			Title: fmt.Sprintf("%s, ticket unassigned", name),
			Body:  fmt.Sprintf("%s reassigned to someone else", t.Code),
			Icon:  "/icon-192.png",
			Data:  pushData(t),
		})
	}
	if id, ok := newA.UserID(); ok {
		name := d.userName(id)
		d.sendPush(id, t, Push{
			Title: fmt.Sprintf("%s, ticket assigned to you", name),
			Body:  fmt.Sprintf("%s: %s", t.Code, t.Title),
			Icon:  "/icon-192.png",
			Data:  pushData(t),
		})
	}
}

// OnStatusChanged notifies the reporter with status-specific wording. The
// caller has already established the actor is not the reporter.
func (d *Dispatcher) OnStatusChanged(t *models.Ticket, oldStatus, newStatus string) {
	var body string
	switch newStatus {
	case models.StatusInProgress:
		body = fmt.Sprintf("%s is now in progress", t.Code)
	case models.StatusCompleted:
		body = fmt.Sprintf("%s has been completed", t.Code)
	default:
		body = fmt.Sprintf("%s moved from %s to %s", t.Code, oldStatus, newStatus)
	}
	d.sendPush(t.ReportedBy, t, Push{
		Title: fmt.Sprintf("Ticket %s updated", t.Code),
		Body:  body,
		Icon:  "/icon-192.png",
		Data:  pushData(t),
	})
}

// sendPush attempts one delivery and records the outcome. A nil sink is a
// normal condition (no push platform configured), logged as no_subscription.
func (d *Dispatcher) sendPush(userID uint, t *models.Ticket, p Push) {
	row := models.NotificationLog{UserID: userID, TicketID: t.ID}

	if d.sink == nil {
		row.Status = models.DeliveryNoSubscription
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.sink.Send(ctx, userID, p)
		cancel()
		if err != nil {
			row.Status = models.DeliveryFailed
			row.ErrorMessage = err.Error()
			log.Printf("notify: push to user %d for %s: %v", userID, t.Code, err)
		} else {
			row.Status = models.DeliverySuccess
		}
	}

	if err := d.db.Create(&row).Error; err != nil {
		log.Printf("notify: log push to user %d for %s: %v", userID, t.Code, err)
	}
}

func (d *Dispatcher) export(eventType string, t *models.Ticket) {
	if d.exporter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	d.exporter.Export(ctx, eventType, t)
}

func (d *Dispatcher) userName(id uint) string {
	var u models.User
	if err := d.db.First(&u, id).Error; err != nil {
		return "Technician"
	}
	return u.DisplayName()
}

func (d *Dispatcher) machineLabel(t *models.Ticket) string {
	if t.Machine != nil {
		return t.Machine.MachineType
	}
	var m models.Machine
	if err := d.db.First(&m, t.MachineID).Error; err != nil {
		return fmt.Sprintf("machine %d", t.MachineID)
	}
	return m.MachineType
}

func pushData(t *models.Ticket) PushData {
	return PushData{
		TicketID:    t.ID,
		DisplayCode: t.Code,
		URL:         fmt.Sprintf("/?ticket=%d", t.ID),
	}
}
