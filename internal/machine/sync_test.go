package machine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/millwright/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Machine{},
		&models.Ticket{},
		&models.TimelineEntry{},
		&models.Alert{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func seedMachine(t *testing.T, db *gorm.DB, status string) *models.Machine {
	t.Helper()
	m := models.Machine{MachineType: "press", Model: "P-200", Status: status}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed machine: %v", err)
	}
	return &m
}

func seedTicket(t *testing.T, db *gorm.DB, machineID uint) *models.Ticket {
	t.Helper()
	tk := models.Ticket{
		Code: "PRESS-0126-0001", Title: "Ram stuck", Status: models.StatusReceived,
		ReportedBy: 1, MachineID: machineID,
	}
	if err := db.Create(&tk).Error; err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return &tk
}

func TestGet(t *testing.T) {
	db := openTestDB(t)
	m := seedMachine(t, db, models.MachineOperational)

	got, err := Get(db, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MachineType != "press" {
		t.Errorf("machine type = %q", got.MachineType)
	}

	if _, err := Get(db, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing machine: err = %v, want ErrNotFound", err)
	}

	// Soft-deleted machines are invisible.
	db.Model(&models.Machine{}).Where("id = ?", m.ID).Update("deleted_at", time.Now())
	if _, err := Get(db, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted machine: err = %v, want ErrNotFound", err)
	}
}

func TestSetStatus(t *testing.T) {
	db := openTestDB(t)
	m := seedMachine(t, db, models.MachineOperational)

	if err := SetStatus(db, m.ID, models.MachineMaintenance); err != nil {
		t.Fatalf("set status: %v", err)
	}
	var got models.Machine
	db.First(&got, m.ID)
	if got.Status != models.MachineMaintenance {
		t.Errorf("status = %q", got.Status)
	}

	if err := SetStatus(db, 99, models.MachineMaintenance); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing machine: err = %v, want ErrNotFound", err)
	}
}

func TestSynchronizer_Down(t *testing.T) {
	db := openTestDB(t)
	m := seedMachine(t, db, models.MachineOperational)
	tk := seedTicket(t, db, m.ID)
	sync := NewSynchronizer(db)

	if err := sync.Apply(tk, false, true, 7); err != nil {
		t.Fatalf("apply down: %v", err)
	}

	var got models.Machine
	db.First(&got, m.ID)
	if got.Status != models.MachineOutOfService {
		t.Errorf("status = %q, want out_of_service", got.Status)
	}

	var alerts []models.Alert
	db.Where("machine_id = ?", m.ID).Find(&alerts)
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	a := alerts[0]
	if !a.AutoGenerated || a.Priority != models.PriorityCritical {
		t.Errorf("alert = %+v", a)
	}
	if !strings.Contains(a.Title, "press P-200") {
		t.Errorf("alert title = %q", a.Title)
	}
	if a.TicketID == nil || *a.TicketID != tk.ID {
		t.Errorf("alert ticket = %v", a.TicketID)
	}

	var entry models.TimelineEntry
	if err := db.Where("ticket_id = ? AND action = ?", tk.ID, models.ActionMachineStopped).First(&entry).Error; err != nil {
		t.Fatalf("stopped entry: %v", err)
	}
	if entry.UserID != 7 {
		t.Errorf("entry user = %d, want 7", entry.UserID)
	}
}

func TestSynchronizer_Restore(t *testing.T) {
	db := openTestDB(t)
	m := seedMachine(t, db, models.MachineOutOfService)
	tk := seedTicket(t, db, m.ID)
	sync := NewSynchronizer(db)

	// Two stale auto alerts plus one manual alert for the same machine: the
	// restore clears only the auto ones.
	for range 2 {
		db.Create(&models.Alert{MachineID: &m.ID, Title: "Machine down: press", AutoGenerated: true, Priority: models.PriorityCritical, DisplaySeconds: 60})
	}
	db.Create(&models.Alert{MachineID: &m.ID, Title: "Planned downtime Friday", Priority: "info", DisplaySeconds: 30})

	if err := sync.Apply(tk, true, false, 7); err != nil {
		t.Fatalf("apply restore: %v", err)
	}

	var got models.Machine
	db.First(&got, m.ID)
	if got.Status != models.MachineOperational {
		t.Errorf("status = %q, want operational", got.Status)
	}

	var remaining []models.Alert
	db.Where("machine_id = ?", m.ID).Find(&remaining)
	if len(remaining) != 1 || remaining[0].AutoGenerated {
		t.Errorf("remaining alerts = %+v, want the manual one", remaining)
	}

	var count int64
	db.Model(&models.TimelineEntry{}).
		Where("ticket_id = ? AND action = ?", tk.ID, models.ActionMachineRestored).Count(&count)
	if count != 1 {
		t.Errorf("restore entries = %d, want 1", count)
	}
}

func TestSynchronizer_NoChange(t *testing.T) {
	db := openTestDB(t)
	m := seedMachine(t, db, models.MachineMaintenance)
	tk := seedTicket(t, db, m.ID)
	sync := NewSynchronizer(db)

	if err := sync.Apply(tk, true, true, 7); err != nil {
		t.Fatalf("apply no-op: %v", err)
	}

	// Nothing moved.
	var got models.Machine
	db.First(&got, m.ID)
	if got.Status != models.MachineMaintenance {
		t.Errorf("status = %q, want untouched maintenance", got.Status)
	}
	var count int64
	db.Model(&models.TimelineEntry{}).Count(&count)
	if count != 0 {
		t.Errorf("timeline entries = %d, want 0", count)
	}
}

func TestSynchronizer_MissingMachine(t *testing.T) {
	db := openTestDB(t)
	tk := seedTicket(t, db, 42)
	sync := NewSynchronizer(db)

	err := sync.Apply(tk, false, true, 7)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
