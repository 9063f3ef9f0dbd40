package utils // phone number normalization shared by handlers and the kiosk form

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned when an input cannot be folded into the
// local 10-digit format.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts user input into the canonical local phone
// format: exactly ten digits with a leading zero (e.g. "0812345678").
// Accepted inputs:
//   - the canonical form itself, with or without separators ("081-234-5678")
//   - the international form with a 66 country prefix ("+66812345678")
//   - a bare nine-digit subscriber number ("812345678")
// Anything else is rejected with ErrInvalidPhone.  Visitors are looked
// up by phone + birth year, so both the kiosk and the backend must
// normalize identically before comparing.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	// Fold the international prefix into the leading-zero form.
	if strings.HasPrefix(digits, "66") && len(digits) == 11 {
		digits = "0" + digits[2:]
	}
	if len(digits) == 9 && digits[0] != '0' {
		digits = "0" + digits
	}
	if len(digits) != 10 || digits[0] != '0' {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// ValidYearOfBirth bounds the birth year to something a living visitor
// could plausibly have.  The upper bound is intentionally loose; exact
// age policy belongs to the front desk, not the data layer.
func ValidYearOfBirth(year int) bool {
	return year >= 1900 && year <= 2100
}
