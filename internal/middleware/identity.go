package middleware

// identity.go holds the identity helper shared by the rate limiter and
// the response cache.  Kiosk traffic is anonymous, so most requests
// resolve to "anon" and are keyed by IP instead.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's ID as a string, or
// "anon" when the request did not pass through JWTAuth.  The JWT
// middleware stores the raw claim value, which decodes as float64 for
// numeric subjects.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%.0f", v)
	case uint64:
		return fmt.Sprintf("%d", v)
	}
	return "anon"
}
