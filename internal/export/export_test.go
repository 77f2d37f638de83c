package export

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zulandar/millwright/internal/models"
	"github.com/zulandar/millwright/internal/settings"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) *settings.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return settings.NewStore(db)
}

func sampleTicket() *models.Ticket {
	sched := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)
	return &models.Ticket{
		ID: 3, Code: "CNC-0126-0003", Title: "Coolant leak",
		Description: "Leaking at the joint", Priority: models.PriorityHigh,
		Status: models.StatusInProgress, ReportedBy: 1, ReporterName: "Pat",
		Assignee: models.AssignUser(5), MachineID: 4,
		ScheduledAt: &sched, IsMachineDown: true,
		CreatedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestExport_PostsPayload(t *testing.T) {
	var got map[string]interface{}
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := testStore(t)
	if err := st.Set(settings.KeyWebhookURL, srv.URL); err != nil {
		t.Fatalf("set url: %v", err)
	}

	New(st).Export(context.Background(), "ticket_updated", sampleTicket())

	if contentType != "application/json" {
		t.Errorf("content type = %q", contentType)
	}
	if got["event_type"] != "ticket_updated" {
		t.Errorf("event_type = %v", got["event_type"])
	}
	if got["source"] != "millwright" {
		t.Errorf("source = %v", got["source"])
	}
	if got["ticket_id"] != "CNC-0126-0003" {
		t.Errorf("ticket_id = %v", got["ticket_id"])
	}
	if got["assigned_to"] != float64(5) {
		t.Errorf("assigned_to = %v", got["assigned_to"])
	}
	if got["is_machine_down"] != true {
		t.Errorf("is_machine_down = %v", got["is_machine_down"])
	}
	if got["scheduled_date"] != "2026-01-20T08:00:00Z" {
		t.Errorf("scheduled_date = %v", got["scheduled_date"])
	}
}

func TestExport_NoURLIsSilent(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	// URL never configured: nothing should be posted anywhere.
	New(testStore(t)).Export(context.Background(), "ticket_created", sampleTicket())
	if called {
		t.Error("export posted without a configured URL")
	}
}

func TestExport_FailureDoesNotPanic(t *testing.T) {
	st := testStore(t)
	st.Set(settings.KeyWebhookURL, "http://127.0.0.1:1/unreachable")

	// Fire-and-forget: connection refused must be swallowed.
	New(st).Export(context.Background(), "ticket_deleted", sampleTicket())
}

func TestSend_ReturnsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream unavailable")
	}))
	defer srv.Close()

	status, body, err := New(testStore(t)).Send(context.Background(), srv.URL, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if status != http.StatusBadGateway {
		t.Errorf("status = %d", status)
	}
	if body != "upstream unavailable" {
		t.Errorf("body = %q", body)
	}
}

func TestSend_TruncatesLongBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for range 100 {
			io.WriteString(w, "0123456789012345678901234567890123456789")
		}
	}))
	defer srv.Close()

	_, body, err := New(testStore(t)).Send(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(body) != maxResponseBody {
		t.Errorf("body length = %d, want %d", len(body), maxResponseBody)
	}
}
