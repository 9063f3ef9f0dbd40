package model

import "time"

// Sex enumerates the values accepted for visitors.sex.  The column is a
// MySQL ENUM; these constants must match the migration exactly.
const (
	SexMasculine = "MASCULINE"
	SexFeminine  = "FEMININE"
)

// Visitor represents an identity record in the `visitors` table.  A
// visitor is created once, on their first check-in, and afterwards
// resolved by ID or by the phone number + birth year pair.  The phone
// number is stored in the normalized 10-digit leading-zero local
// format produced by utils.NormalizePhone.
//
// Fields:
//  ID          – primary key identifier.
//  FirstName   – given name.
//  MiddleName  – middle name, may be empty.
//  LastName    – family name.
//  YearOfBirth – four-digit year used together with the phone for lookups.
//  Sex         – MASCULINE or FEMININE.
//  Phone       – normalized 10-digit phone number, unique with YearOfBirth.
//  Email       – optional contact email (nullable).
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Visitor struct {
	ID          uint64    `json:"id"`            // visitors.id
	FirstName   string    `json:"first_name"`    // visitors.first_name
	MiddleName  string    `json:"middle_name"`   // visitors.middle_name
	LastName    string    `json:"last_name"`     // visitors.last_name
	YearOfBirth int       `json:"year_of_birth"` // visitors.year_of_birth
	Sex         string    `json:"sex"`           // visitors.sex
	Phone       string    `json:"phone"`         // visitors.phone
	Email       *string   `json:"email,omitempty"` // visitors.email (nullable)
	CreatedAt   time.Time `json:"created_at"`    // visitors.created_at
	UpdatedAt   time.Time `json:"updated_at"`    // visitors.updated_at
}

// FullName joins the name parts with single spaces, skipping an empty
// middle name.  The same derivation is applied by the kiosk form before
// submission so the two sides always agree.
func (v Visitor) FullName() string {
	name := v.FirstName
	if v.MiddleName != "" {
		name += " " + v.MiddleName
	}
	if v.LastName != "" {
		name += " " + v.LastName
	}
	return name
}
