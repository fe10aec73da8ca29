package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/domain"
)

const refreshCookie = "refreshToken"

// CookieConfig controls the session cookies. Secure is only turned off for
// local development over plain HTTP.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (cc CookieConfig) set(c echo.Context, pair domain.TokenPair) {
	c.SetCookie(cc.cookie(middleware.AccessCookie, pair.AccessToken, cc.AccessTTL))
	c.SetCookie(cc.cookie(refreshCookie, pair.RefreshToken, cc.RefreshTTL))
}

func (cc CookieConfig) clear(c echo.Context) {
	for _, name := range []string{middleware.AccessCookie, refreshCookie} {
		ck := cc.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

func (cc CookieConfig) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
