package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openvisit/visitor-portal/internal/model"
)

// VisitorRepo provides data access to the `visitors` table.  Visitors
// are created on first check-in and afterwards resolved either by ID
// or by the normalized phone + birth year pair.  All timestamps are
// stored and compared in UTC.
type VisitorRepo struct {
	db *sql.DB
}

// NewVisitorRepo returns a new VisitorRepo bound to the given database.
func NewVisitorRepo(db *sql.DB) *VisitorRepo { return &VisitorRepo{db: db} }

const visitorColumns = `id, first_name, middle_name, last_name, year_of_birth, sex, phone, email, created_at, updated_at`

// scanVisitor reads one visitor row from any row scanner.
func scanVisitor(row interface{ Scan(...interface{}) error }) (model.Visitor, error) {
	var v model.Visitor
	var email sql.NullString
	err := row.Scan(&v.ID, &v.FirstName, &v.MiddleName, &v.LastName,
		&v.YearOfBirth, &v.Sex, &v.Phone, &email, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return model.Visitor{}, err
	}
	if email.Valid {
		e := email.String
		v.Email = &e
	}
	return v, nil
}

// GetByID fetches a visitor by primary key.  Returns ErrVisitorNotFound
// when no row matches.
func (r *VisitorRepo) GetByID(ctx context.Context, id uint64) (model.Visitor, error) {
	const q = `SELECT ` + visitorColumns + ` FROM visitors WHERE id = ? LIMIT 1`
	v, err := scanVisitor(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Visitor{}, ErrVisitorNotFound
	}
	return v, err
}

// GetByPhoneYear resolves a returning visitor from the identifying pair
// the kiosk collects.  The phone must already be normalized; lookups
// never normalize so that the two sides cannot silently diverge.
// Returns ErrVisitorNotFound when no row matches.
func (r *VisitorRepo) GetByPhoneYear(ctx context.Context, phone string, year int) (model.Visitor, error) {
	const q = `SELECT ` + visitorColumns + ` FROM visitors WHERE phone = ? AND year_of_birth = ? LIMIT 1`
	v, err := scanVisitor(r.db.QueryRowContext(ctx, q, phone, year))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Visitor{}, ErrVisitorNotFound
	}
	return v, err
}

// insertVisitorTx inserts a new visitor within an existing transaction
// and queries the row back to populate generated fields.  A duplicate
// phone + birth year pair yields ErrPhoneExists (MySQL error 1062 on
// the unique index).  The caller must commit or roll back.
func insertVisitorTx(ctx context.Context, tx *sql.Tx, v *model.Visitor) error {
	const q = `INSERT INTO visitors (first_name, middle_name, last_name, year_of_birth, sex, phone, email)
			   VALUES (?, ?, ?, ?, ?, ?, ?)`
	var email interface{}
	if v.Email != nil {
		email = *v.Email
	}
	result, err := tx.ExecContext(ctx, q, v.FirstName, v.MiddleName, v.LastName,
		v.YearOfBirth, v.Sex, v.Phone, email)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrPhoneExists
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	const sel = `SELECT ` + visitorColumns + ` FROM visitors WHERE id = ?`
	stored, err := scanVisitor(tx.QueryRowContext(ctx, sel, v.ID))
	if err != nil {
		return err
	}
	*v = stored
	return nil
}

// Update rewrites a visitor's editable fields.  The kiosk never calls
// this; it backs the staff-side edit flow.  Returns ErrVisitorNotFound
// when the ID does not exist.
func (r *VisitorRepo) Update(ctx context.Context, v *model.Visitor) error {
	const q = `UPDATE visitors
			   SET first_name = ?, middle_name = ?, last_name = ?, year_of_birth = ?, sex = ?, phone = ?, email = ?
			   WHERE id = ?`
	var email interface{}
	if v.Email != nil {
		email = *v.Email
	}
	res, err := r.db.ExecContext(ctx, q, v.FirstName, v.MiddleName, v.LastName,
		v.YearOfBirth, v.Sex, v.Phone, email, v.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrPhoneExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVisitorNotFound
	}
	return nil
}
