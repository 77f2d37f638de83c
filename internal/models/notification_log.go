package models

import "time"

// Notification delivery outcomes.
const (
	DeliverySuccess        = "success"
	DeliveryFailed         = "failed"
	DeliveryNoSubscription = "no_subscription"
)

// NotificationLog records one attempted push delivery. Write-once, used for
// audit and the sweep daemon's dedupe windows; never read on the write path.
type NotificationLog struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"index;not null"`
	TicketID     uint   `gorm:"index;not null"`
	Status       string `gorm:"size:24;not null"`
	ErrorMessage string `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"index"`
}

// WebhookNotification records one overdue webhook sent by the sweep daemon,
// keyed by the scheduled date it notified about so a rescheduled ticket gets
// notified again.
type WebhookNotification struct {
	ID                    uint   `gorm:"primaryKey"`
	TicketID              uint   `gorm:"index;not null"`
	NotificationType      string `gorm:"size:32;not null"`
	WebhookURL            string `gorm:"size:255"`
	SentAt                time.Time
	ResponseStatus        int
	ResponseBody          string `gorm:"type:text"`
	ScheduledDateNotified string `gorm:"size:64;index"`
}
