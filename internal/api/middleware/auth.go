package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	// AccessCookie carries the access token for browser clients.
	AccessCookie = "accessToken"

	ContextUserID = "user_id"
	ContextClaims = "claims"
)

// Auth verifies the access token from the accessToken cookie or an
// Authorization: Bearer header and injects the caller's claims into context.
func Auth(codec ports.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessToken(c.Request())
			if raw == "" {
				metrics.AuthRejectionsTotal.WithLabelValues("missing_token").Inc()
				return domain.Unauthorized("unauthorized request")
			}

			claims, err := codec.VerifyAccess(raw)
			if err != nil {
				metrics.AuthRejectionsTotal.WithLabelValues("invalid_token").Inc()
				return err
			}

			setClaims(c, claims)
			return next(c)
		}
	}
}

// OptionalAuth injects claims when a valid access token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(codec ports.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := accessToken(c.Request()); raw != "" {
				if claims, err := codec.VerifyAccess(raw); err == nil {
					setClaims(c, claims)
				}
			}
			return next(c)
		}
	}
}

func setClaims(c echo.Context, claims domain.AccessClaims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextClaims, claims)
}

// accessToken prefers the cookie over the header.
func accessToken(r *http.Request) string {
	if ck, err := r.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}

	authHeader := r.Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
