// Package ticket provides the ticket repository and transition engine.
package ticket

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/millwright/internal/machine"
	"github.com/zulandar/millwright/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a ticket doesn't exist or is soft-deleted.
	ErrNotFound = errors.New("ticket: not found")
	// ErrPermissionDenied is returned when a role-based rule is violated.
	ErrPermissionDenied = errors.New("ticket: permission denied")
	// ErrInvalid wraps input validation failures.
	ErrInvalid = errors.New("ticket: invalid input")
)

// defaultDebounce is the duplicate-submission lookback window.
const defaultDebounce = 60 * time.Second

// codeAttempts bounds retries when a generated code collides.
const codeAttempts = 3

// Actor identifies who is performing an operation. Authentication happens
// upstream; the engine only encodes the permission decisions.
type Actor struct {
	UserID uint
	Role   string
	Name   string
}

// reporterTier reports whether the actor is limited to their own tickets.
func (a Actor) reporterTier() bool { return a.Role == models.RoleOperator }

// UpdateEvent describes what an update changed, for the notifier.
type UpdateEvent struct {
	ActorID         uint
	ReporterIsActor bool
	StatusChanged   bool
	OldStatus       string
	NewStatus       string
	AssigneeChanged bool
	OldAssignee     models.Assignee
	NewAssignee     models.Assignee
}

// Notifier receives mutation events after they are durably applied. Calls run
// on the service's background func and must never affect the mutation result.
type Notifier interface {
	OnCreated(t *models.Ticket)
	OnUpdated(t *models.Ticket, ev UpdateEvent)
	OnDeleted(t *models.Ticket)
}

// Opts holds parameters for creating a Service.
type Opts struct {
	DB             *gorm.DB
	Sync           *machine.Synchronizer
	Notifier       Notifier      // optional; nil disables notifications
	DebounceWindow time.Duration // optional; defaults to 60s
	Now            func() time.Time
	Background     func(func()) // optional; defaults to `go f()`
}

// Service owns ticket mutations and queries.
type Service struct {
	db         *gorm.DB
	sync       *machine.Synchronizer
	notifier   Notifier
	debounce   time.Duration
	now        func() time.Time
	background func(func())
}

// NewService creates a ticket Service.
func NewService(opts Opts) (*Service, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("ticket: db is required")
	}
	if opts.Sync == nil {
		opts.Sync = machine.NewSynchronizer(opts.DB)
	}
	if opts.DebounceWindow == 0 {
		opts.DebounceWindow = defaultDebounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Background == nil {
		opts.Background = func(f func()) { go f() }
	}
	return &Service{
		db:         opts.DB,
		sync:       opts.Sync,
		notifier:   opts.Notifier,
		debounce:   opts.DebounceWindow,
		now:        opts.Now,
		background: opts.Background,
	}, nil
}

// CreateOpts holds parameters for creating a ticket.
type CreateOpts struct {
	Title         string
	Description   string
	Priority      string
	MachineID     uint
	Assignee      models.Assignee
	ScheduledAt   *time.Time
	IsMachineDown bool
}

// Create files a new ticket. A near-identical submission by the same reporter
// for the same machine inside the debounce window returns the existing ticket
// instead of inserting a second row.
func (s *Service) Create(actor Actor, opts CreateOpts) (*models.Ticket, error) {
	if len(opts.Title) < 3 || len(opts.Title) > 200 {
		return nil, fmt.Errorf("%w: title must be 3-200 characters", ErrInvalid)
	}
	if len(opts.Description) > 2000 {
		return nil, fmt.Errorf("%w: description too long (max 2000 characters)", ErrInvalid)
	}
	if opts.Priority == "" {
		opts.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(opts.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalid, opts.Priority)
	}

	m, err := machine.Get(s.db, opts.MachineID)
	if err != nil {
		if errors.Is(err, machine.ErrNotFound) {
			return nil, fmt.Errorf("ticket: machine %d: %w", opts.MachineID, ErrNotFound)
		}
		return nil, err
	}

	// Duplicate submission guard: heuristic debounce, not a uniqueness
	// constraint. Two requests racing on different replicas can both pass.
	if existing := s.findRecentDuplicate(actor.UserID, opts.MachineID, opts.Title); existing != nil {
		return existing, nil
	}

	t, err := s.insertWithCode(actor, opts, m)
	if err != nil {
		return nil, err
	}

	entry := models.TimelineEntry{
		TicketID:  t.ID,
		UserID:    actor.UserID,
		Action:    models.ActionCreated,
		NewStatus: strptr(t.Status),
		Note:      opts.Description,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("ticket: timeline for %s: %w", t.Code, err)
	}

	// A brand-new ticket has no prior state: the flag being true runs the
	// down branch directly.
	if t.IsMachineDown {
		if err := s.sync.Apply(t, false, true, actor.UserID); err != nil {
			return nil, err
		}
	}

	if s.notifier != nil {
		created := *t
		s.background(func() { s.notifier.OnCreated(&created) })
	}
	return t, nil
}

// insertWithCode inserts the ticket, regenerating the code on a unique-index
// collision up to codeAttempts times. Exhaustion is a server error, never a
// silent degrade.
func (s *Service) insertWithCode(actor Actor, opts CreateOpts, m *models.Machine) (*models.Ticket, error) {
	now := s.now()
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := s.generateCode(m.MachineType, now)
		if err != nil {
			return nil, err
		}
		t := models.Ticket{
			Code:          code,
			Title:         opts.Title,
			Description:   opts.Description,
			Priority:      opts.Priority,
			Status:        models.StatusReceived,
			ReportedBy:    actor.UserID,
			ReporterName:  actor.Name,
			Assignee:      opts.Assignee,
			MachineID:     opts.MachineID,
			ScheduledAt:   opts.ScheduledAt,
			IsMachineDown: opts.IsMachineDown,
		}
		err = s.db.Create(&t).Error
		if err == nil {
			return &t, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("ticket: create: %w", err)
		}
	}
	return nil, fmt.Errorf("ticket: failed to generate unique code after %d attempts", codeAttempts)
}

// findRecentDuplicate returns an existing non-deleted ticket with the same
// reporter, machine, and title created inside the debounce window, or nil.
func (s *Service) findRecentDuplicate(reporterID, machineID uint, title string) *models.Ticket {
	cutoff := s.now().Add(-s.debounce)
	var existing models.Ticket
	err := s.db.Where(
		"reported_by = ? AND machine_id = ? AND title = ? AND deleted_at IS NULL AND created_at >= ?",
		reporterID, machineID, title, cutoff,
	).Order("created_at DESC").First(&existing).Error
	if err != nil {
		return nil
	}
	return &existing
}

// Get retrieves a non-deleted ticket with its machine and timeline.
func (s *Service) Get(id uint) (*models.Ticket, error) {
	return s.get(id, false)
}

// GetAny retrieves a ticket by ID even if soft-deleted.
func (s *Service) GetAny(id uint) (*models.Ticket, error) {
	return s.get(id, true)
}

func (s *Service) get(id uint, includeDeleted bool) (*models.Ticket, error) {
	q := s.db.Preload("Machine").Preload("Timeline").Where("id = ?", id)
	if !includeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	var t models.Ticket
	if err := q.First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ticket: get %d: %w", id, err)
	}
	return &t, nil
}

// Filters holds optional filters for listing tickets.
type Filters struct {
	Status         string
	Priority       string
	MachineID      uint
	ReportedBy     uint
	IncludeDeleted bool
}

// List returns tickets matching the filters, newest first. Soft-deleted rows
// are excluded unless IncludeDeleted is set.
func (s *Service) List(f Filters) ([]models.Ticket, error) {
	q := s.db.Model(&models.Ticket{})
	if !f.IncludeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.MachineID != 0 {
		q = q.Where("machine_id = ?", f.MachineID)
	}
	if f.ReportedBy != 0 {
		q = q.Where("reported_by = ?", f.ReportedBy)
	}
	var tickets []models.Ticket
	if err := q.Order("created_at DESC").Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("ticket: list: %w", err)
	}
	return tickets, nil
}

// SoftDelete marks a ticket deleted without destroying the row. Reporters may
// only delete their own tickets.
func (s *Service) SoftDelete(id uint, actor Actor) error {
	t, err := s.Get(id)
	if err != nil {
		return err
	}
	if actor.reporterTier() && t.ReportedBy != actor.UserID {
		return ErrPermissionDenied
	}

	now := s.now()
	err = s.db.Model(&models.Ticket{}).Where("id = ?", id).
		Update("deleted_at", now).Error
	if err != nil {
		return fmt.Errorf("ticket: soft delete %d: %w", id, err)
	}
	t.DeletedAt = &now

	if s.notifier != nil {
		deleted := *t
		s.background(func() { s.notifier.OnDeleted(&deleted) })
	}
	return nil
}

func strptr(s string) *string { return &s }
