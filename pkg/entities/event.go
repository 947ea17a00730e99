package entities

import (
	"time"
)

// EventType identifies the kind of settlement event
type EventType string

const (
	EventTypeWagerSettled EventType = "wager.settled"
	EventTypeSpinAccepted EventType = "spin.accepted"
	EventTypeSpinRejected EventType = "spin.rejected"
)

// Event is the typed envelope published after settlement. Delivery is
// at-least-once; consumers must be idempotent.
type Event struct {
	ID          string    // Unique event identifier
	Type        EventType // Event kind
	OccurredAt  time.Time // When the event was produced
	UserID      string    // Affected user
	ReferenceID string    // Transaction or offer ID
	Payload     map[string]string
}
