package model

import "time"

// Visit records a single attendance instance for a visitor in the
// `visits` table.  A visit is "active" while CheckedOutAt is null; the
// repository layer guarantees that a visitor has at most one active
// visit at any time.  Visits are closed by checkout and are never
// deleted by this service.
//
// Fields:
//  ID           – primary key identifier.
//  VisitorID    – owning visitor.
//  Purpose      – free-text reason for the visit.
//  CheckedInAt  – when the visit was opened.
//  CheckedOutAt – when the visit was closed (null while active).
//  CreatedAt    – timestamp of creation.
type Visit struct {
	ID           uint64     `json:"id"`             // visits.id
	VisitorID    uint64     `json:"visitor_id"`     // visits.visitor_id
	Purpose      string     `json:"purpose"`        // visits.purpose
	CheckedInAt  time.Time  `json:"checked_in_at"`  // visits.checked_in_at
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"` // visits.checked_out_at (nullable)
	CreatedAt    time.Time  `json:"created_at"`     // visits.created_at
}

// Active reports whether the visit is still open.
func (v Visit) Active() bool { return v.CheckedOutAt == nil }

// VisitorVisit pairs a visitor with one of their visits.  It is the
// payload returned by check-in endpoints (both on success and on a
// duplicate conflict, where it carries the pre-existing active visit)
// and by the active-visit resume lookup.
type VisitorVisit struct {
	Visitor Visitor `json:"visitor"`
	Visit   Visit   `json:"visit"`
}
