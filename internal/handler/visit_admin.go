package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openvisit/visitor-portal/internal/repository"
)

// AdminVisitHandler serves the reception dashboard's visit views:
// filtered listings, manual check-out, visitor record corrections, and
// the per-day analytics feed.
type AdminVisitHandler struct {
	Visits   *repository.VisitRepo
	Visitors *repository.VisitorRepo
}

func NewAdminVisitHandler(visits *repository.VisitRepo, visitors *repository.VisitorRepo) *AdminVisitHandler {
	if visits == nil || visitors == nil {
		panic("nil repository passed to NewAdminVisitHandler")
	}
	return &AdminVisitHandler{Visits: visits, Visitors: visitors}
}

// parseID reads a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// List handles GET /api/admin/visits.  Query parameters: active=true
// narrows to open visits, from/to take YYYY-MM-DD dates (to is
// exclusive), limit/offset page through results.
func (h *AdminVisitHandler) List(c echo.Context) error {
	var opts repository.ListOptions
	opts.ActiveOnly = c.QueryParam("active") == "true"
	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
		}
		opts.From = t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
		}
		opts.To = t
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			opts.Limit = n
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	visits, err := h.Visits.List(ctx, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"visits": visits, "count": len(visits)})
}

// CheckOut handles POST /api/admin/visits/:id/check-out.  Reception
// uses this to close a visit for someone who left without badging out.
func (h *AdminVisitHandler) CheckOut(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid visit id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	visit, err := h.Visits.CheckOut(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVisitNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "visit not found"})
		case errors.Is(err, repository.ErrAlreadyCheckedOut):
			return c.JSON(http.StatusConflict, echo.Map{"error": "visit already checked out", "visit": visit})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-out failed"})
		}
	}
	return c.JSON(http.StatusOK, visit)
}

// UpdateVisitor handles PUT /api/admin/visitors/:id.  Reception uses
// this to fix typos in a visitor record; the kiosk never edits.
func (h *AdminVisitHandler) UpdateVisitor(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid visitor id"})
	}
	var req checkInNewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	visitor, err := visitorFromReq(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	visitor.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Visitors.Update(ctx, &visitor); err != nil {
		switch {
		case errors.Is(err, repository.ErrVisitorNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "visitor not found"})
		case errors.Is(err, repository.ErrPhoneExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "phone already registered to another visitor"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	stored, err := h.Visitors.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"visitor": stored})
}

// Daily handles GET /api/admin/analytics/daily?from=...&to=... and
// returns per-day visit counts.  Defaults to the trailing 30 days.
func (h *AdminVisitHandler) Daily(c echo.Context) error {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30).Truncate(24 * time.Hour)
	to := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
		}
		from = t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
		}
		to = t
	}
	if !to.After(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be after from"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	counts, err := h.Visits.CountByDay(ctx, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"days": counts})
}
