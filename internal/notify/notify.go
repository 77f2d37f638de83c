// Package notify fans out best-effort push notifications on ticket events.
//
// Delivery goes through a Sink adapter (Slack, Discord); the dispatcher never
// lets a delivery failure reach the mutation path, and every attempt is
// recorded in the notification log.
package notify

import "context"

// Push is one notification to deliver to a user.
type Push struct {
	Title   string
	Body    string
	Icon    string
	Actions []Action
	Data    PushData
}

// Action is a tappable action attached to a push.
type Action struct {
	Action string
	Title  string
}

// PushData carries the machine-readable context of a push.
type PushData struct {
	TicketID    uint
	DisplayCode string
	URL         string
}

// Sink delivers pushes to a platform. Implementations own their retries and
// rate limiting; Send returning nil means the platform accepted the message.
type Sink interface {
	Send(ctx context.Context, userID uint, p Push) error
	Close() error
}
