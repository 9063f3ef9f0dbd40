package model

import "time"

// Webhook event names that can be subscribed to.  "*" subscribes to
// everything.
const (
	EventVisitCheckedIn  = "visit.checked_in"
	EventVisitCheckedOut = "visit.checked_out"
)

// Webhook is a registered outbound endpoint in the `webhooks` table.
// Enabled webhooks whose Events filter matches a published event
// receive an HTTP POST from the delivery worker, signed with the
// per-webhook secret.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – human label shown in the dashboard.
//  URL       – target endpoint.
//  Secret    – HMAC-SHA256 signing key for the X-Portal-Signature header.
//  Events    – comma-separated event names, or "*" for all.
//  Enabled   – disabled webhooks are skipped by the worker.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Webhook struct {
	ID        uint64    `json:"id"`      // webhooks.id
	Name      string    `json:"name"`    // webhooks.name
	URL       string    `json:"url"`     // webhooks.url
	Secret    string    `json:"-"`       // webhooks.secret (never serialized)
	Events    string    `json:"events"`  // webhooks.events
	Enabled   bool      `json:"enabled"` // webhooks.enabled
	CreatedAt time.Time `json:"created_at"` // webhooks.created_at
	UpdatedAt time.Time `json:"updated_at"` // webhooks.updated_at
}

// WebhookDelivery is one delivery attempt recorded in the
// `webhook_deliveries` table.  The worker inserts a row per attempt so
// the dashboard can show delivery history and failures.
//
// Fields:
//  ID         – primary key identifier.
//  WebhookID  – webhook that was targeted.
//  Event      – event name that triggered the delivery.
//  Attempt    – 1-based attempt number.
//  StatusCode – HTTP status returned by the target, 0 when unreachable.
//  Error      – transport error message, empty on success.
//  CreatedAt  – when the attempt was made.
type WebhookDelivery struct {
	ID         uint64    `json:"id"`          // webhook_deliveries.id
	WebhookID  uint64    `json:"webhook_id"`  // webhook_deliveries.webhook_id
	Event      string    `json:"event"`       // webhook_deliveries.event
	Attempt    int       `json:"attempt"`     // webhook_deliveries.attempt
	StatusCode int       `json:"status_code"` // webhook_deliveries.status_code
	Error      string    `json:"error,omitempty"` // webhook_deliveries.error
	CreatedAt  time.Time `json:"created_at"`  // webhook_deliveries.created_at
}
