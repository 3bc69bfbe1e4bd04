package middleware

// identity.go holds the accessors for what JWTAuth put in the context.
// Unauthenticated requests are reported as "anon" so rate limit keys and
// log fields always have a value.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated subject, or "anon".
func UserID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// Role returns the authenticated role, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(CtxRole).(string)
	return s
}
