// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrActiveVisitExists signals the duplicate check-in case,
// which handlers must turn into a 409 response that still carries the
// existing visitor/visit pair rather than a bare error message.
package repository

import "errors"

// ErrVisitorNotFound is returned when no visitor matches the requested
// ID or phone + birth year pair. Handlers should translate this into
// an HTTP 404 response; the kiosk treats it as "route to manual form".
var ErrVisitorNotFound = errors.New("visitor not found")

// ErrVisitNotFound is returned when a visit ID does not exist or a
// visitor has no active visit. Handlers should translate this into an
// HTTP 404 response.
var ErrVisitNotFound = errors.New("visit not found")

// ErrActiveVisitExists is returned by check-in operations when the
// visitor already has an open visit. The repository loads the existing
// pair before returning this error so the caller can surface the real
// check-in details. Handlers should translate this into HTTP 409.
var ErrActiveVisitExists = errors.New("visitor already has an active visit")

// ErrAlreadyCheckedOut is returned when a checkout targets a visit
// whose checked_out_at is already set. Handlers should translate this
// into an HTTP 409 response.
var ErrAlreadyCheckedOut = errors.New("visit already checked out")

// ErrPhoneExists is returned when creating a visitor whose phone +
// birth year pair is already registered. The check-in flow resolves
// the existing visitor instead of failing.
var ErrPhoneExists = errors.New("phone and birth year already registered")

// ErrWebhookNotFound is returned when a webhook ID does not exist.
var ErrWebhookNotFound = errors.New("webhook not found")
