package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns an Echo middleware that enforces a fixed-window
// per-client request budget backed by Redis, keyed by client IP and
// route. It protects the booking and payment-callback endpoints from
// bursts (the gateway may retry callbacks aggressively). The limiter
// fails open: when Redis is unavailable the request proceeds and the
// error is ignored, since admission correctness does not depend on
// rate limiting.
func RateLimit(rdb *redis.Client, perMinute int) echo.MiddlewareFunc {
	if rdb == nil || perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			window := time.Now().UTC().Unix() / 60
			key := fmt.Sprintf("rl:%s:%s:%d", c.RealIP(), c.Path(), window)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if count == 1 {
				rdb.Expire(ctx, key, time.Minute)
			}
			if count > int64(perMinute) {
				c.Response().Header().Set("Retry-After", "60")
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
