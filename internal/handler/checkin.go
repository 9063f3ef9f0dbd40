package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openvisit/visitor-portal/internal/model"
	"github.com/openvisit/visitor-portal/internal/queue"
	"github.com/openvisit/visitor-portal/internal/repository"
	"github.com/openvisit/visitor-portal/internal/utils"
)

// VisitorStore is the slice of the visitor repository the public
// check-in surface needs.  *repository.VisitorRepo satisfies it; tests
// substitute fakes.
type VisitorStore interface {
	GetByID(ctx context.Context, id uint64) (model.Visitor, error)
	GetByPhoneYear(ctx context.Context, phone string, year int) (model.Visitor, error)
}

// VisitStore is the slice of the visit repository the public check-in
// surface needs.  *repository.VisitRepo satisfies it.
type VisitStore interface {
	CheckInNew(ctx context.Context, visitor *model.Visitor, purpose string) (model.VisitorVisit, error)
	CheckInReturning(ctx context.Context, visitorID uint64, purpose string) (model.VisitorVisit, error)
	ActiveByVisitor(ctx context.Context, visitorID uint64) (model.VisitorVisit, error)
	CheckOut(ctx context.Context, visitID uint64) (model.Visit, error)
}

// CheckInHandler serves the kiosk-facing endpoints: visitor resolution,
// check-in (new and returning), session resume and checkout.  These
// routes are unauthenticated — the kiosk is a shared device — and are
// rate limited at the router.  Publish sends domain events to the
// webhook pipeline; failures there are logged, never surfaced to the
// visitor.
type CheckInHandler struct {
	Visitors VisitorStore
	Visits   VisitStore
	Publish  func(ctx context.Context, ev queue.VisitEvent) error
}

// NewCheckInHandler constructs a CheckInHandler.  publish may be nil
// when no broker is configured.
func NewCheckInHandler(visitors VisitorStore, visits VisitStore, publish func(ctx context.Context, ev queue.VisitEvent) error) *CheckInHandler {
	if visitors == nil || visits == nil {
		panic("nil store passed to NewCheckInHandler")
	}
	return &CheckInHandler{Visitors: visitors, Visits: visits, Publish: publish}
}

// checkInNewReq is the new-visitor registration payload produced by the
// kiosk form's transform step.
type checkInNewReq struct {
	FirstName   string `json:"first_name"`
	MiddleName  string `json:"middle_name"`
	LastName    string `json:"last_name"`
	YearOfBirth int    `json:"year_of_birth"`
	Sex         string `json:"sex"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Purpose     string `json:"purpose"`
}

// GetVisitor handles GET /api/visitors/:id.  It returns the visitor
// record or 404; the kiosk resolver treats both the same way.
func (h *CheckInHandler) GetVisitor(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid visitor id"})
	}
	visitor, err := h.Visitors.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrVisitorNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "visitor not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"visitor": visitor})
}

// LookupVisitor handles GET /api/visitors/lookup?phone=&birth_year=.
// It resolves a returning visitor from the identifying pair the kiosk
// collects.  The phone is normalized server-side as well, so a kiosk
// that forgot the transform still matches.
func (h *CheckInHandler) LookupVisitor(c echo.Context) error {
	phone, err := utils.NormalizePhone(c.QueryParam("phone"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phone"})
	}
	year, err := strconv.Atoi(c.QueryParam("birth_year"))
	if err != nil || !utils.ValidYearOfBirth(year) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid birth_year"})
	}
	visitor, err := h.Visitors.GetByPhoneYear(c.Request().Context(), phone, year)
	if err != nil {
		if errors.Is(err, repository.ErrVisitorNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "visitor not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"visitor": visitor})
}

// CheckInNew handles POST /api/visitors/check-in.  It registers the
// visitor and opens their first visit atomically.  When the phone +
// birth year pair already exists, the handler resolves the existing
// visitor and retries as a returning check-in, so a re-registration
// attempt lands on the duplicate-conflict contract instead of a bare
// uniqueness error.
func (h *CheckInHandler) CheckInNew(c echo.Context) error {
	var req checkInNewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	visitor, err := visitorFromReq(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	pair, err := h.Visits.CheckInNew(ctx, &visitor, strings.TrimSpace(req.Purpose))
	if errors.Is(err, repository.ErrPhoneExists) {
		existing, lerr := h.Visitors.GetByPhoneYear(ctx, visitor.Phone, visitor.YearOfBirth)
		if lerr != nil {
			return c.JSON(http.StatusConflict, echo.Map{"error": "phone already registered"})
		}
		return h.finishReturning(c, existing.ID, strings.TrimSpace(req.Purpose))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
	}
	h.publish(ctx, model.EventVisitCheckedIn, pair)
	return c.JSON(http.StatusCreated, pair)
}

// CheckInReturning handles POST /api/visitors/check-in/returning with
// a {"visitor_id": n} body.  A duplicate check-in responds 409 and the
// body still carries the pre-existing visitor/visit pair so the kiosk
// shows the real check-in details.
func (h *CheckInHandler) CheckInReturning(c echo.Context) error {
	var req struct {
		VisitorID uint64 `json:"visitor_id"`
		Purpose   string `json:"purpose"`
	}
	if err := c.Bind(&req); err != nil || req.VisitorID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "visitor_id is required"})
	}
	return h.finishReturning(c, req.VisitorID, strings.TrimSpace(req.Purpose))
}

func (h *CheckInHandler) finishReturning(c echo.Context, visitorID uint64, purpose string) error {
	ctx := c.Request().Context()
	pair, err := h.Visits.CheckInReturning(ctx, visitorID, purpose)
	switch {
	case err == nil:
		h.publish(ctx, model.EventVisitCheckedIn, pair)
		return c.JSON(http.StatusCreated, pair)
	case errors.Is(err, repository.ErrActiveVisitExists):
		return c.JSON(http.StatusConflict, pair)
	case errors.Is(err, repository.ErrVisitorNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "visitor not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
	}
}

// ActiveVisit handles GET /api/visitors/:id/active-visit.  It backs
// session resume: the kiosk re-resolves its durably stored visitor ID
// into the open pair after a reload.
func (h *CheckInHandler) ActiveVisit(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid visitor id"})
	}
	pair, err := h.Visits.ActiveByVisitor(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrVisitNotFound) || errors.Is(err, repository.ErrVisitorNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active visit"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, pair)
}

// CheckOut handles POST /api/visits/:id/check-out.  Closing an already
// closed visit is a 409, not an error the kiosk needs to distinguish
// further.
func (h *CheckInHandler) CheckOut(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid visit id"})
	}
	ctx := c.Request().Context()
	visit, err := h.Visits.CheckOut(ctx, id)
	switch {
	case err == nil:
		if visitor, verr := h.Visitors.GetByID(ctx, visit.VisitorID); verr == nil {
			h.publish(ctx, model.EventVisitCheckedOut, model.VisitorVisit{Visitor: visitor, Visit: visit})
		}
		return c.JSON(http.StatusOK, echo.Map{"visit": visit})
	case errors.Is(err, repository.ErrAlreadyCheckedOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": "visit already checked out"})
	case errors.Is(err, repository.ErrVisitNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "visit not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-out failed"})
	}
}

// publish hands a domain event to the webhook pipeline.  The visitor
// flow never fails on a broker problem.
func (h *CheckInHandler) publish(ctx context.Context, event string, pair model.VisitorVisit) {
	if h.Publish == nil {
		return
	}
	if err := h.Publish(ctx, queue.NewVisitEvent(event, pair)); err != nil {
		log.Printf("checkin: publish %s failed: %v", event, err)
	}
}

// visitorFromReq validates and normalizes the registration payload.
func visitorFromReq(req checkInNewReq) (model.Visitor, error) {
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" || last == "" {
		return model.Visitor{}, errors.New("first_name and last_name are required")
	}
	if !utils.ValidYearOfBirth(req.YearOfBirth) {
		return model.Visitor{}, errors.New("year_of_birth out of range")
	}
	sex := strings.ToUpper(strings.TrimSpace(req.Sex))
	if sex != model.SexMasculine && sex != model.SexFeminine {
		return model.Visitor{}, errors.New("sex must be MASCULINE or FEMININE")
	}
	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		return model.Visitor{}, errors.New("invalid phone")
	}
	v := model.Visitor{
		FirstName:   first,
		MiddleName:  strings.TrimSpace(req.MiddleName),
		LastName:    last,
		YearOfBirth: req.YearOfBirth,
		Sex:         sex,
		Phone:       phone,
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		v.Email = &email
	}
	return v, nil
}
