package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// RequestID assigns every request an id, reusing X-Request-ID when the
// client sent one.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// RequestLogger logs one line per request. Server errors log at error,
// client errors at warn and everything else at info.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				// Let echo render the error so the status below is final.
				c.Error(err)
			}

			res := c.Response()
			fields := []zap.Field{
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				zap.Int("status", res.Status),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.String("query", req.URL.RawQuery),
				zap.String("ip", c.RealIP()),
				zap.String("user", userKey(c)),
				zap.String("user_agent", req.UserAgent()),
				zap.Duration("latency", time.Since(start)),
				zap.Int64("body_size", res.Size),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			switch status := res.Status; {
			case status >= 500:
				log.Error("Server error", fields...)
			case status >= 400:
				log.Warn("Client error", fields...)
			default:
				log.Info("Request completed", fields...)
			}
			return nil
		}
	}
}
