package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/auth"
	"github.com/iliyamo/event-booking/internal/policy"
)

// AccessClaims are the claims this service reads from an access token.
// The subject carries the numeric user id.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth returns an Echo middleware that validates a Bearer HS256
// access token and attaches the resulting policy.Principal to the
// request. Tokens whose jti is in the revocation set are refused. A nil
// revoked store skips that check.
func JWTAuth(secret string, revoked auth.RevocationStore, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	keyFunc := func(*jwt.Token) (any, error) { return []byte(secret), nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			var claims AccessClaims
			if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
				msg := "invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "token expired"
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}

			userID, err := strconv.ParseInt(claims.Subject, 10, 64)
			role := policy.Role(claims.Role)
			if err != nil || userID <= 0 || !role.Valid() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			if revoked != nil && claims.ID != "" {
				isRevoked, err := revoked.IsRevoked(c.Request().Context(), claims.ID)
				if err != nil {
					log.Error("revocation lookup failed", zap.String("jti", claims.ID), zap.Error(err))
					return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "authentication unavailable"})
				}
				if isRevoked {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
				}
			}

			SetPrincipal(c, policy.Principal{UserID: userID, Role: role})
			return next(c)
		}
	}
}
