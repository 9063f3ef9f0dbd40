// Package kiosk implements the check-in lifecycle that runs on a
// visitor-facing kiosk: the phase state machine, the multi-step
// registration form engine, the idle timer and the post-check-in
// countdown.  Every collaborator (identity resolver, check-in API,
// durable session storage) is an explicit constructor parameter, so
// the package runs the same against the real backend, a stub, or a
// test double.
package kiosk

import "errors"

// ErrNotFound is returned by resolver and API implementations when no
// visitor or visit matches.  The machine treats it as "route to the
// manual form", never as fatal.
var ErrNotFound = errors.New("not found")

// ErrDuplicateVisit is returned by check-in calls when the visitor
// already has an active visit.  Implementations must return the
// existing visitor/visit pair alongside this error so the kiosk can
// show the real check-in details.
var ErrDuplicateVisit = errors.New("visitor already checked in")

// ErrBusy is returned when an operation is rejected because a previous
// call is still in flight.  The event loop can dispatch a second tap
// before the first request resolves; this guard makes the double
// submit a no-op instead of a duplicate network call.
var ErrBusy = errors.New("operation already in flight")

// ErrInvalidTransition is returned when an event arrives in a phase
// that does not accept it (e.g. submitting a form while no form is
// shown).
var ErrInvalidTransition = errors.New("event not valid in current phase")

// ErrMalformedResponse is returned when a conflict or success response
// does not carry a usable visitor/visit pair.  Per the error taxonomy
// this is fatal for the attempt: the machine exits to the welcome
// screen rather than rendering with missing data.
var ErrMalformedResponse = errors.New("malformed server response")
