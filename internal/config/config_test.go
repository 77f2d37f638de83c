package config

import (
	"strings"
	"testing"
)

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("parse empty config: %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "millwright.db" {
		t.Errorf("path = %q, want millwright.db", cfg.Database.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Sweep.Cron != "* * * * *" {
		t.Errorf("cron = %q", cfg.Sweep.Cron)
	}
	if cfg.Sweep.AssigneeDedupeMinutes != 5 {
		t.Errorf("assignee dedupe = %d, want 5", cfg.Sweep.AssigneeDedupeMinutes)
	}
	if cfg.Sweep.AdminDedupeHours != 24 {
		t.Errorf("admin dedupe = %d, want 24", cfg.Sweep.AdminDedupeHours)
	}
	if cfg.Tickets.DebounceWindowSeconds != 60 {
		t.Errorf("debounce = %d, want 60", cfg.Tickets.DebounceWindowSeconds)
	}
	if len(cfg.Settings.ClosedStatuses) != 5 {
		t.Errorf("closed statuses = %v", cfg.Settings.ClosedStatuses)
	}
}

func TestParse_Full(t *testing.T) {
	yaml := `
database:
  driver: mysql
  host: db.internal
  port: 3307
  user: mw
  password: secret
  name: millwright
server:
  port: 9090
notify:
  platform: slack
  slack:
    bot_token: xoxb-test
    channel: maintenance
sweep:
  cron: "*/5 * * * *"
  assignee_dedupe_minutes: 10
  admin_dedupe_hours: 12
tickets:
  debounce_window_seconds: 30
settings:
  timezone_offset: 2
  webhook_url: https://hooks.example.com/mw
  closed_statuses: [completed, archived]
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Database.Driver != "mysql" || cfg.Database.Name != "millwright" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Notify.Platform != "slack" || cfg.Notify.Slack.BotToken != "xoxb-test" {
		t.Errorf("notify = %+v", cfg.Notify)
	}
	if cfg.Sweep.Cron != "*/5 * * * *" {
		t.Errorf("cron = %q", cfg.Sweep.Cron)
	}
	if cfg.Settings.TimezoneOffset != 2 {
		t.Errorf("timezone offset = %d, want 2", cfg.Settings.TimezoneOffset)
	}
	if len(cfg.Settings.ClosedStatuses) != 2 {
		t.Errorf("closed statuses = %v", cfg.Settings.ClosedStatuses)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"bad driver", "database:\n  driver: postgres\n", "database.driver"},
		{"mysql without name", "database:\n  driver: mysql\n", "database.name is required"},
		{"bad platform", "notify:\n  platform: teams\n", "notify.platform"},
		{"slack without token", "notify:\n  platform: slack\n", "notify.slack.bot_token"},
		{"discord without token", "notify:\n  platform: discord\n", "notify.discord.bot_token"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), c.want)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("database: ["))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/millwright.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
