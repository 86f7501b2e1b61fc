package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/policy"
)

// RequireRole aborts with 403 unless the authenticated caller has one of
// roles. It must run after JWTAuth. Ownership checks are left to
// policy.Authorize in the handlers.
func RequireRole(roles ...policy.Role) echo.MiddlewareFunc {
	allowed := make(map[policy.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok || !allowed[p.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
