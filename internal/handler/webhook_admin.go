package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openvisit/visitor-portal/internal/model"
	"github.com/openvisit/visitor-portal/internal/repository"
)

// WebhookHandler manages outbound webhook endpoints and exposes their
// delivery history.  Admin only.
type WebhookHandler struct {
	Webhooks *repository.WebhookRepo
}

func NewWebhookHandler(w *repository.WebhookRepo) *WebhookHandler {
	if w == nil {
		panic("nil repository passed to NewWebhookHandler")
	}
	return &WebhookHandler{Webhooks: w}
}

type webhookReq struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Secret  string `json:"secret"`
	Events  string `json:"events"` // "*" or comma-separated event names
	Enabled *bool  `json:"enabled"`
}

func (req *webhookReq) validate() (string, bool) {
	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	req.Events = strings.TrimSpace(req.Events)
	if req.Name == "" {
		return "name is required", false
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "url must be a valid http(s) URL", false
	}
	if req.Events == "" {
		req.Events = "*"
	}
	return "", true
}

// Create handles POST /api/admin/webhooks.
func (h *WebhookHandler) Create(c echo.Context) error {
	var req webhookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg, ok := req.validate(); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	hook := model.Webhook{Name: req.Name, URL: req.URL, Secret: req.Secret, Events: req.Events, Enabled: enabled}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Webhooks.Create(ctx, &hook); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, hook)
}

// List handles GET /api/admin/webhooks.
func (h *WebhookHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hooks, err := h.Webhooks.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"webhooks": hooks})
}

// Get handles GET /api/admin/webhooks/:id.
func (h *WebhookHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hook, err := h.Webhooks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrWebhookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "webhook not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, hook)
}

// Update handles PUT /api/admin/webhooks/:id.  The full set of mutable
// fields is replaced; an omitted secret clears it.
func (h *WebhookHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook id"})
	}
	var req webhookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg, ok := req.validate(); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hook, err := h.Webhooks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrWebhookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "webhook not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	hook.Name = req.Name
	hook.URL = req.URL
	hook.Secret = req.Secret
	hook.Events = req.Events
	if req.Enabled != nil {
		hook.Enabled = *req.Enabled
	}
	if err := h.Webhooks.Update(ctx, &hook); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, hook)
}

// Delete handles DELETE /api/admin/webhooks/:id.
func (h *WebhookHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Webhooks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrWebhookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "webhook not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Deliveries handles GET /api/admin/webhooks/:id/deliveries?limit=N.
func (h *WebhookHandler) Deliveries(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook id"})
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Webhooks.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrWebhookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "webhook not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	deliveries, err := h.Webhooks.ListDeliveries(ctx, id, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"deliveries": deliveries})
}
