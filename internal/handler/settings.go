package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openvisit/visitor-portal/internal/model"
)

// SettingsStore is the slice of the settings repository the handlers
// need.  *repository.SettingsRepo satisfies it.
type SettingsStore interface {
	All(ctx context.Context) (map[string]string, error)
	List(ctx context.Context) ([]model.Setting, error)
	Set(ctx context.Context, key, value string) error
}

// SettingsHandler serves the application branding map.  The public
// read goes through the Redis response cache at the router; writes are
// admin-only and naturally infrequent, so no invalidation beyond the
// cache TTL is done.
type SettingsHandler struct {
	Settings SettingsStore
}

func NewSettingsHandler(s SettingsStore) *SettingsHandler {
	if s == nil {
		panic("nil store passed to NewSettingsHandler")
	}
	return &SettingsHandler{Settings: s}
}

// Get handles GET /api/settings.  The kiosk reads this once at boot to
// brand itself (application name, logo, theme, default language).
func (h *SettingsHandler) Get(c echo.Context) error {
	settings, err := h.Settings.All(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, settings)
}

// List handles GET /api/admin/settings.  Unlike the public read it
// returns the stored rows with their update timestamps and no default
// filling, so the dashboard shows exactly what has been configured.
func (h *SettingsHandler) List(c echo.Context) error {
	settings, err := h.Settings.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": settings, "count": len(settings)})
}

// Put handles PUT /api/admin/settings with a {"key": k, "value": v}
// body.  Admin only.
func (h *SettingsHandler) Put(c echo.Context) error {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Key) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "key is required"})
	}
	if err := h.Settings.Set(c.Request().Context(), strings.TrimSpace(req.Key), req.Value); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"key": strings.TrimSpace(req.Key), "value": req.Value})
}
