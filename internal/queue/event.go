// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/openvisit/visitor-portal/internal/model"
)

// QueueName is the durable queue carrying visit lifecycle events from
// the API to the webhook delivery worker.
const QueueName = "visit.events"

// VisitEvent is published after every successful check-in or checkout.
// It carries the full visitor/visit pair so the delivery worker can
// build webhook payloads without querying the primary database.
type VisitEvent struct {
	Event      string        `json:"event"` // model.EventVisitCheckedIn / EventVisitCheckedOut
	Visitor    model.Visitor `json:"visitor"`
	Visit      model.Visit   `json:"visit"`
	OccurredAt string        `json:"occurred_at"` // RFC3339, UTC
}

// NewVisitEvent stamps an event with the current UTC time.
func NewVisitEvent(event string, pair model.VisitorVisit) VisitEvent {
	return VisitEvent{
		Event:      event,
		Visitor:    pair.Visitor,
		Visit:      pair.Visit,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
