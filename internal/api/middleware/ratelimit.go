package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/99minutos/account-service/internal/core/domain"
)

const rateLimiterExpiry = 5 * time.Minute

// RateLimit throttles requests per client IP with a token bucket.
func RateLimit(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(
		echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return &domain.Error{Kind: domain.KindRateLimited, Message: "rate limit exceeded"}
		},
	})
}
