// Package config provides YAML-based configuration loading for Millwright.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Millwright configuration, loaded from millwright.yaml.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Notify   NotifyConfig   `yaml:"notify"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Tickets  TicketsConfig  `yaml:"tickets"`
	Settings SeedSettings   `yaml:"settings"`
}

// DatabaseConfig holds connection settings. Driver is "sqlite" (local) or
// "mysql" (production).
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// NotifyConfig selects and configures the push delivery sink. Platform is
// empty (disabled), "slack", or "discord".
type NotifyConfig struct {
	Platform string        `yaml:"platform"`
	Slack    SlackConfig   `yaml:"slack"`
	Discord  DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack sink credentials.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord sink credentials.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// SweepConfig controls the overdue sweep daemon.
type SweepConfig struct {
	Cron                  string `yaml:"cron"`                    // 5-field cron expression
	AssigneeDedupeMinutes int    `yaml:"assignee_dedupe_minutes"` // push dedupe window for assignees
	AdminDedupeHours      int    `yaml:"admin_dedupe_hours"`      // push dedupe window per admin
}

// TicketsConfig holds ticket-service tunables.
type TicketsConfig struct {
	DebounceWindowSeconds int `yaml:"debounce_window_seconds"`
}

// SeedSettings are the initial values written to the system_settings table by
// `mw db init`. After seeding they are owned by the table, not this file.
type SeedSettings struct {
	TimezoneOffset int      `yaml:"timezone_offset"`
	ClosedStatuses []string `yaml:"closed_statuses"`
	WebhookURL     string   `yaml:"webhook_url"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "millwright.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Sweep.Cron == "" {
		c.Sweep.Cron = "* * * * *"
	}
	if c.Sweep.AssigneeDedupeMinutes == 0 {
		c.Sweep.AssigneeDedupeMinutes = 5
	}
	if c.Sweep.AdminDedupeHours == 0 {
		c.Sweep.AdminDedupeHours = 24
	}
	if c.Tickets.DebounceWindowSeconds == 0 {
		c.Tickets.DebounceWindowSeconds = 60
	}
	if len(c.Settings.ClosedStatuses) == 0 {
		c.Settings.ClosedStatuses = []string{"resolved", "closed", "completed", "cancelled", "archived"}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite":
		// path defaulted above
	case "mysql":
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	switch c.Notify.Platform {
	case "", "slack", "discord":
	default:
		errs = append(errs, fmt.Sprintf("notify.platform %q is not supported (slack, discord)", c.Notify.Platform))
	}
	if c.Notify.Platform == "slack" && c.Notify.Slack.BotToken == "" {
		errs = append(errs, "notify.slack.bot_token is required")
	}
	if c.Notify.Platform == "discord" && c.Notify.Discord.BotToken == "" {
		errs = append(errs, "notify.discord.bot_token is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
