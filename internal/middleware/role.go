package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Roles carried in the JWT "role" claim.
const (
	RoleProducer = "PRODUCER" // publishes events, clones sessions, issues courtesies
	RoleStaff    = "STAFF"    // validates tickets at the door
	RoleCustomer = "CUSTOMER" // buys tickets
	RoleGateway  = "GATEWAY"  // payment gateway callback
)

// RequireRole returns a middleware that lets the request through only when
// the role stored by JWTAuth is one of roles.  Others get 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
