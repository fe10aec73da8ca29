package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/domain"
)

// currentUserID returns the id injected by the Auth middleware and fails fast
// when the route was wired without it.
func currentUserID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.ContextUserID).(string)
	if id == "" {
		return "", domain.Unauthorized("unauthorized request")
	}
	return id, nil
}

// viewerID is the optional caller on routes behind OptionalAuth.
func viewerID(c echo.Context) string {
	id, _ := c.Get(middleware.ContextUserID).(string)
	return id
}
