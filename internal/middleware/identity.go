package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/policy"
)

// principalKey is the echo context key JWTAuth stores the caller under.
const principalKey = "principal"

// SetPrincipal attaches p to the request context.
func SetPrincipal(c echo.Context, p policy.Principal) { c.Set(principalKey, p) }

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(c echo.Context) (policy.Principal, bool) {
	p, ok := c.Get(principalKey).(policy.Principal)
	return p, ok
}

// userKey identifies the caller for rate limiting and logging. It
// returns "anon" when no principal is attached.
func userKey(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return strconv.FormatInt(p.UserID, 10)
	}
	return "anon"
}
