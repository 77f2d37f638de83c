package models

import "time"

// Setting is one row of the key/value runtime configuration table. Tenants
// tune the closed-status set, timezone offset, and webhook URL here without a
// redeploy; internal/settings caches reads with explicit invalidation.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64;column:setting_key"`
	Value     string `gorm:"type:text;column:setting_value"`
	UpdatedAt time.Time
}
