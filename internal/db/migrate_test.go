package db

import (
	"testing"

	"github.com/zulandar/millwright/internal/config"
	"github.com/zulandar/millwright/internal/models"
	"github.com/zulandar/millwright/internal/settings"
	"gorm.io/gorm"
)

func connectTest(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return gormDB
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	if _, err := Connect(config.DatabaseConfig{Driver: "postgres"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestDSN(t *testing.T) {
	c := config.DatabaseConfig{Host: "db.internal", Port: 3307, User: "mw", Password: "secret", Name: "millwright"}
	want := "mw:secret@tcp(db.internal:3307)/millwright?parseTime=true&charset=utf8mb4"
	if got := DSN(c); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}

	c.Password = ""
	want = "mw@tcp(db.internal:3307)/millwright?parseTime=true&charset=utf8mb4"
	if got := DSN(c); got != want {
		t.Errorf("passwordless DSN = %q, want %q", got, want)
	}
}

func TestAutoMigrateAndSeed(t *testing.T) {
	gormDB := connectTest(t)

	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	for _, m := range AllModels() {
		if !gormDB.Migrator().HasTable(m) {
			t.Errorf("missing table for %T", m)
		}
	}

	seed := config.SeedSettings{
		TimezoneOffset: 3,
		ClosedStatuses: []string{"completed", "archived"},
		WebhookURL:     "https://hooks.example.com/mw",
	}
	if err := SeedSettings(gormDB, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	st := settings.NewStore(gormDB)
	if got := st.TimezoneOffset(); got != 3 {
		t.Errorf("timezone offset = %d, want 3", got)
	}
	if got := st.WebhookURL(); got != seed.WebhookURL {
		t.Errorf("webhook url = %q", got)
	}
	if got := st.ClosedStatuses(); len(got) != 2 || got[0] != "completed" {
		t.Errorf("closed statuses = %v", got)
	}

	// Re-seeding overwrites rather than duplicating.
	seed.TimezoneOffset = -5
	if err := SeedSettings(gormDB, seed); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	var count int64
	gormDB.Model(&models.Setting{}).Count(&count)
	if count != 3 {
		t.Errorf("setting rows = %d, want 3", count)
	}
	st.Invalidate()
	if got := st.TimezoneOffset(); got != -5 {
		t.Errorf("timezone offset after re-seed = %d, want -5", got)
	}
}
