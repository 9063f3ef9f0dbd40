// Package router wires handlers and middleware onto the Echo instance.
// The surface splits three ways: the public kiosk API (anonymous, rate
// limited), the staff auth endpoints, and the admin dashboard API
// behind JWT + role checks.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/openvisit/visitor-portal/internal/handler"
	"github.com/openvisit/visitor-portal/internal/middleware"
	"github.com/openvisit/visitor-portal/internal/model"
)

// RegisterHealth exposes the health check.  It sits outside every
// middleware group so probes are never rate limited or cached.
func RegisterHealth(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterKiosk registers the public kiosk endpoints.  rateLimit and
// cache may be pass-throughs when Redis is unavailable.
func RegisterKiosk(e *echo.Echo, ch *handler.CheckInHandler, sh *handler.SettingsHandler, rateLimit, cache echo.MiddlewareFunc) {
	g := e.Group("/api", rateLimit)

	// Branding map, fetched by every kiosk at boot.  Cached.
	g.GET("/settings", sh.Get, cache)

	// Visitor resolution for the returning-visitor flow.
	g.GET("/visitors/lookup", ch.LookupVisitor)
	g.GET("/visitors/:id", ch.GetVisitor)
	g.GET("/visitors/:id/active-visit", ch.ActiveVisit)

	// Check-in and check-out.
	g.POST("/visitors/check-in", ch.CheckInNew)
	g.POST("/visitors/check-in/returning", ch.CheckInReturning)
	g.POST("/visits/:id/check-out", ch.CheckOut)
}

// RegisterAuth registers the staff authentication endpoints.  Login,
// refresh and logout are open; registration is restricted to admins so
// the kiosk network cannot mint accounts.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/api", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me, middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	auth.POST("/auth/register", a.Register, middleware.RequireRole(model.RoleAdmin))
}

// RegisterAdmin registers the dashboard API.  Visit views are open to
// all staff; webhook management and settings writes are admin only.
func RegisterAdmin(e *echo.Echo, av *handler.AdminVisitHandler, wh *handler.WebhookHandler, sh *handler.SettingsHandler, jwtSecret string) {
	g := e.Group("/api/admin", middleware.JWTAuth(jwtSecret))

	staff := middleware.RequireRole(model.RoleAdmin, model.RoleStaff)
	admin := middleware.RequireRole(model.RoleAdmin)

	g.GET("/visits", av.List, staff)
	g.POST("/visits/:id/check-out", av.CheckOut, staff)
	g.PUT("/visitors/:id", av.UpdateVisitor, staff)
	g.GET("/analytics/daily", av.Daily, staff)

	g.GET("/settings", sh.List, admin)
	g.PUT("/settings", sh.Put, admin)

	g.POST("/webhooks", wh.Create, admin)
	g.GET("/webhooks", wh.List, admin)
	g.GET("/webhooks/:id", wh.Get, admin)
	g.PUT("/webhooks/:id", wh.Update, admin)
	g.DELETE("/webhooks/:id", wh.Delete, admin)
	g.GET("/webhooks/:id/deliveries", wh.Deliveries, admin)
}
