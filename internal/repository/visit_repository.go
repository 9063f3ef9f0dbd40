package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openvisit/visitor-portal/internal/model"
)

// VisitRepo provides data access to the `visits` table and owns the
// check-in transactions.  The invariant it enforces is that a visitor
// has at most one active visit (checked_out_at IS NULL) at any time:
// a second check-in attempt loads the existing pair and reports
// ErrActiveVisitExists instead of opening a new visit.  The visitor
// row is locked for the duration of the transaction so two concurrent
// check-ins for the same visitor serialize on the database.
type VisitRepo struct {
	db *sql.DB
}

// NewVisitRepo returns a new VisitRepo bound to the given database.
func NewVisitRepo(db *sql.DB) *VisitRepo { return &VisitRepo{db: db} }

const visitColumns = `id, visitor_id, purpose, checked_in_at, checked_out_at, created_at`

// scanVisit reads one visit row from any row scanner.
func scanVisit(row interface{ Scan(...interface{}) error }) (model.Visit, error) {
	var v model.Visit
	var out sql.NullTime
	err := row.Scan(&v.ID, &v.VisitorID, &v.Purpose, &v.CheckedInAt, &out, &v.CreatedAt)
	if err != nil {
		return model.Visit{}, err
	}
	if out.Valid {
		t := out.Time
		v.CheckedOutAt = &t
	}
	return v, nil
}

// CheckInNew registers a brand-new visitor and opens their first visit
// in a single transaction.  The visitor struct is populated with the
// stored row on success.  A duplicate phone + birth year pair aborts
// with ErrPhoneExists; the caller is expected to resolve the existing
// visitor and retry as a returning check-in.
func (r *VisitRepo) CheckInNew(ctx context.Context, visitor *model.Visitor, purpose string) (model.VisitorVisit, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.VisitorVisit{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := insertVisitorTx(ctx, tx, visitor); err != nil {
		return model.VisitorVisit{}, err
	}
	visit, err := r.insertVisitTx(ctx, tx, visitor.ID, purpose)
	if err != nil {
		return model.VisitorVisit{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.VisitorVisit{}, err
	}
	committed = true
	return model.VisitorVisit{Visitor: *visitor, Visit: visit}, nil
}

// CheckInReturning opens a visit for a known visitor.  When the visitor
// already has an active visit, the existing pair is returned together
// with ErrActiveVisitExists so the kiosk can show the real check-in
// details.  Returns ErrVisitorNotFound when the ID does not exist.
func (r *VisitRepo) CheckInReturning(ctx context.Context, visitorID uint64, purpose string) (model.VisitorVisit, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.VisitorVisit{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the visitor row; concurrent check-ins for the same visitor
	// queue up here instead of both inserting an active visit.
	visitor, err := scanVisitor(tx.QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE id = ? FOR UPDATE`, visitorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VisitorVisit{}, ErrVisitorNotFound
		}
		return model.VisitorVisit{}, err
	}

	existing, err := scanVisit(tx.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE visitor_id = ? AND checked_out_at IS NULL LIMIT 1`, visitorID))
	if err == nil {
		// Duplicate check-in: write nothing, report the open visit.
		return model.VisitorVisit{Visitor: visitor, Visit: existing}, ErrActiveVisitExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.VisitorVisit{}, err
	}

	visit, err := r.insertVisitTx(ctx, tx, visitorID, purpose)
	if err != nil {
		return model.VisitorVisit{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.VisitorVisit{}, err
	}
	committed = true
	return model.VisitorVisit{Visitor: visitor, Visit: visit}, nil
}

// insertVisitTx creates the visit row and queries it back so generated
// timestamps come from the database clock, not the application's.
func (r *VisitRepo) insertVisitTx(ctx context.Context, tx *sql.Tx, visitorID uint64, purpose string) (model.Visit, error) {
	const ins = `INSERT INTO visits (visitor_id, purpose, checked_in_at) VALUES (?, ?, UTC_TIMESTAMP())`
	result, err := tx.ExecContext(ctx, ins, visitorID, purpose)
	if err != nil {
		return model.Visit{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Visit{}, err
	}
	return scanVisit(tx.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = ?`, uint64(id)))
}

// GetByID fetches a visit by primary key.  Returns ErrVisitNotFound
// when no row matches.
func (r *VisitRepo) GetByID(ctx context.Context, id uint64) (model.Visit, error) {
	const q = `SELECT ` + visitColumns + ` FROM visits WHERE id = ? LIMIT 1`
	v, err := scanVisit(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Visit{}, ErrVisitNotFound
	}
	return v, err
}

// ActiveByVisitor returns the visitor together with their currently
// open visit.  It backs the kiosk's session resume: after a reload the
// kiosk re-resolves the durably stored visitor ID through this query.
// Returns ErrVisitNotFound when no visit is open.
func (r *VisitRepo) ActiveByVisitor(ctx context.Context, visitorID uint64) (model.VisitorVisit, error) {
	visitor, err := scanVisitor(r.db.QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE id = ?`, visitorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VisitorVisit{}, ErrVisitorNotFound
		}
		return model.VisitorVisit{}, err
	}
	visit, err := scanVisit(r.db.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE visitor_id = ? AND checked_out_at IS NULL LIMIT 1`, visitorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VisitorVisit{}, ErrVisitNotFound
		}
		return model.VisitorVisit{}, err
	}
	return model.VisitorVisit{Visitor: visitor, Visit: visit}, nil
}

// CheckOut closes a visit by setting checked_out_at.  Returns
// ErrVisitNotFound when the ID does not exist and ErrAlreadyCheckedOut
// when the visit is already closed.  The updated row is returned.
func (r *VisitRepo) CheckOut(ctx context.Context, visitID uint64) (model.Visit, error) {
	const upd = `UPDATE visits SET checked_out_at = UTC_TIMESTAMP() WHERE id = ? AND checked_out_at IS NULL`
	res, err := r.db.ExecContext(ctx, upd, visitID)
	if err != nil {
		return model.Visit{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Visit{}, err
	}
	if n == 0 {
		// Distinguish "missing" from "already closed".
		visit, err := r.GetByID(ctx, visitID)
		if err != nil {
			return model.Visit{}, err
		}
		if visit.CheckedOutAt != nil {
			return visit, ErrAlreadyCheckedOut
		}
		return model.Visit{}, ErrVisitNotFound
	}
	return r.GetByID(ctx, visitID)
}

// VisitDetail is a visit joined with its visitor's display fields.  It
// is the row shape the dashboard's visit listing consumes.
type VisitDetail struct {
	model.Visit
	VisitorName string `json:"visitor_name"`
	Phone       string `json:"phone"`
}

// ListOptions narrows the dashboard listing.  Zero values mean "no
// filter"; Limit falls back to 50 and is capped at 200.
type ListOptions struct {
	ActiveOnly bool
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// List returns visits joined with visitor display fields, newest
// first.  When no visits match, an empty slice is returned.
func (r *VisitRepo) List(ctx context.Context, opts ListOptions) ([]VisitDetail, error) {
	q := `SELECT v.id, v.visitor_id, v.purpose, v.checked_in_at, v.checked_out_at, v.created_at,
				 vr.first_name, vr.middle_name, vr.last_name, vr.phone
		  FROM visits v
		  JOIN visitors vr ON vr.id = v.visitor_id
		  WHERE 1=1`
	args := make([]interface{}, 0, 4)
	if opts.ActiveOnly {
		q += ` AND v.checked_out_at IS NULL`
	}
	if !opts.From.IsZero() {
		q += ` AND v.checked_in_at >= ?`
		args = append(args, opts.From.UTC())
	}
	if !opts.To.IsZero() {
		q += ` AND v.checked_in_at < ?`
		args = append(args, opts.To.UTC())
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	q += ` ORDER BY v.checked_in_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]VisitDetail, 0)
	for rows.Next() {
		var d VisitDetail
		var out sql.NullTime
		var first, middle, last string
		if err := rows.Scan(&d.ID, &d.VisitorID, &d.Purpose, &d.CheckedInAt, &out, &d.CreatedAt,
			&first, &middle, &last, &d.Phone); err != nil {
			return nil, err
		}
		if out.Valid {
			t := out.Time
			d.CheckedOutAt = &t
		}
		d.VisitorName = (model.Visitor{FirstName: first, MiddleName: middle, LastName: last}).FullName()
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// DailyCount aggregates one day's visits for the analytics panel.
type DailyCount struct {
	Date   string `json:"date"` // YYYY-MM-DD in UTC
	Total  int    `json:"total"`
	Active int    `json:"active"`
}

// CountByDay groups visits per UTC day over [from, to).  Days with no
// visits are absent from the result; the dashboard fills gaps.
func (r *VisitRepo) CountByDay(ctx context.Context, from, to time.Time) ([]DailyCount, error) {
	const q = `SELECT DATE(v.checked_in_at), COUNT(*),
					  SUM(CASE WHEN v.checked_out_at IS NULL THEN 1 ELSE 0 END)
			   FROM visits v
			   WHERE v.checked_in_at >= ? AND v.checked_in_at < ?
			   GROUP BY DATE(v.checked_in_at)
			   ORDER BY DATE(v.checked_in_at)`
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make([]DailyCount, 0)
	for rows.Next() {
		var c DailyCount
		var day time.Time
		if err := rows.Scan(&day, &c.Total, &c.Active); err != nil {
			return nil, err
		}
		c.Date = day.UTC().Format("2006-01-02")
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
