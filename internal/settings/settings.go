// Package settings provides DB-backed runtime configuration with a short
// read cache. Tenants tune these values at runtime (via API or SQL); nothing
// here is a compiled constant.
package settings

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/zulandar/millwright/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys.
const (
	KeyClosedStatuses = "ticket_closed_statuses"
	KeyTimezoneOffset = "timezone_offset"
	KeyWebhookURL     = "webhook_url"
)

// cacheTTL bounds staleness for readers that don't call Invalidate.
const cacheTTL = time.Minute

// DefaultClosedStatuses is used when the setting row is missing or unparseable.
var DefaultClosedStatuses = []string{"resolved", "closed", "completed", "cancelled", "archived"}

type cached struct {
	value   string
	found   bool
	expires time.Time
}

// Store reads system_settings with a per-key TTL cache. Writes through Set
// invalidate immediately; out-of-band SQL edits are picked up within cacheTTL.
type Store struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

// NewStore creates a settings store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:    db,
		ttl:   cacheTTL,
		now:   time.Now,
		cache: make(map[string]cached),
	}
}

// Get returns the raw value for key, or found=false if the row is absent.
// Read errors are logged and treated as absent so callers fall back to
// defaults rather than failing the surrounding operation.
func (s *Store) Get(key string) (value string, found bool) {
	s.mu.Lock()
	if c, ok := s.cache[key]; ok && s.now().Before(c.expires) {
		s.mu.Unlock()
		return c.value, c.found
	}
	s.mu.Unlock()

	var row models.Setting
	err := s.db.Where("setting_key = ?", key).First(&row).Error
	switch {
	case err == nil:
		value, found = row.Value, true
	case err == gorm.ErrRecordNotFound:
		value, found = "", false
	default:
		log.Printf("settings: read %q: %v", key, err)
		return "", false // not cached; retry on next read
	}

	s.mu.Lock()
	s.cache[key] = cached{value: value, found: found, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return value, found
}

// Set upserts a setting and invalidates the cache.
func (s *Store) Set(key, value string) error {
	row := models.Setting{Key: key, Value: value}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("settings: set %q: %w", key, result.Error)
	}
	s.Invalidate()
	return nil
}

// Invalidate drops all cached values.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]cached)
	s.mu.Unlock()
}

// ClosedStatuses returns the statuses excluded from active and overdue views.
func (s *Store) ClosedStatuses() []string {
	raw, found := s.Get(KeyClosedStatuses)
	if !found || raw == "" {
		return DefaultClosedStatuses
	}
	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || len(parsed) == 0 {
		log.Printf("settings: %s has invalid value %q, using defaults", KeyClosedStatuses, raw)
		return DefaultClosedStatuses
	}
	return parsed
}

// IsClosed reports whether status is in the configured closed set.
func (s *Store) IsClosed(status string) bool {
	for _, c := range s.ClosedStatuses() {
		if c == status {
			return true
		}
	}
	return false
}

// TimezoneOffset returns the display timezone offset in hours. Display only:
// overdue comparisons always run on absolute instants.
func (s *Store) TimezoneOffset() int {
	raw, found := s.Get(KeyTimezoneOffset)
	if !found || raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("settings: %s has invalid value %q, using 0", KeyTimezoneOffset, raw)
		return 0
	}
	return n
}

// WebhookURL returns the shadow-export endpoint, or "" when export is disabled.
func (s *Store) WebhookURL() string {
	raw, _ := s.Get(KeyWebhookURL)
	return raw
}
