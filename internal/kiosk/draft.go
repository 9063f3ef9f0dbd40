package kiosk

import (
	"errors"
	"strings"

	"github.com/openvisit/visitor-portal/internal/model"
	"github.com/openvisit/visitor-portal/internal/utils"
)

// Draft is the in-progress multi-step form's field values, exactly as
// typed.  It lives only for the duration of one kiosk session and is
// discarded on submit success or on leaving the portal.  The transform
// from draft to request payload (phone normalization, trimming) runs
// once, in Payload, immediately before submission.
type Draft struct {
	FirstName   string
	MiddleName  string
	LastName    string
	YearOfBirth int
	Sex         string
	Phone       string // raw, as typed; normalized by Payload
	Email       string
	Purpose     string
}

// DraftFromPrefill seeds a draft with the identity fields carried over
// from a failed returning-visitor lookup.
func DraftFromPrefill(p Prefill) Draft {
	return Draft{Phone: p.Phone, YearOfBirth: p.YearOfBirth}
}

// FullName derives the display name the review step shows, using the
// same joining rule the backend applies.
func (d Draft) FullName() string {
	return model.Visitor{
		FirstName:  strings.TrimSpace(d.FirstName),
		MiddleName: strings.TrimSpace(d.MiddleName),
		LastName:   strings.TrimSpace(d.LastName),
	}.FullName()
}

// Payload validates the draft and produces the check-in request body.
// Validation here is the final gate; per-step validators surface the
// same rules earlier with field-level messages.
func (d Draft) Payload() (NewVisitorPayload, error) {
	first := strings.TrimSpace(d.FirstName)
	last := strings.TrimSpace(d.LastName)
	if first == "" || last == "" {
		return NewVisitorPayload{}, errors.New("first and last name are required")
	}
	if !utils.ValidYearOfBirth(d.YearOfBirth) {
		return NewVisitorPayload{}, errors.New("year of birth out of range")
	}
	sex := strings.ToUpper(strings.TrimSpace(d.Sex))
	if sex != model.SexMasculine && sex != model.SexFeminine {
		return NewVisitorPayload{}, errors.New("sex must be MASCULINE or FEMININE")
	}
	phone, err := utils.NormalizePhone(d.Phone)
	if err != nil {
		return NewVisitorPayload{}, err
	}
	return NewVisitorPayload{
		FirstName:   first,
		MiddleName:  strings.TrimSpace(d.MiddleName),
		LastName:    last,
		YearOfBirth: d.YearOfBirth,
		Sex:         sex,
		Phone:       phone,
		Email:       strings.TrimSpace(d.Email),
		Purpose:     strings.TrimSpace(d.Purpose),
	}, nil
}
