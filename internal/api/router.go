package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/account-service/docs"
	"github.com/99minutos/account-service/internal/api/handler"
	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/infrastructure/config"
)

// multipartOverhead leaves room for the text fields next to the files.
const multipartOverhead = 1 << 20

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Sessions ports.SessionService
	Profiles ports.ProfileService
	Tokens   ports.TokenCodec
	Checks   map[string]handler.DependencyCheck
	Log      zerolog.Logger

	// Registry receives the HTTP request metrics. Nil uses the default
	// Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg *config.Config, deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(corsMiddleware(cfg.HTTP.CORSOrigin))
	e.Use(echomiddleware.BodyLimit(fmt.Sprintf("%dB", 2*cfg.HTTP.MaxUploadBytes+multipartOverhead)))
	e.Use(prometheusMiddleware(deps.Registry))

	// --- Dependencies ---
	cookies := handler.CookieConfig{
		Secure:     cfg.HTTP.CookieSecure,
		AccessTTL:  cfg.Token.AccessTTL.Duration(),
		RefreshTTL: cfg.Token.RefreshTTL.Duration(),
	}
	authHandler := handler.NewAuthHandler(deps.Sessions, cookies, cfg.HTTP.MaxUploadBytes)
	profileHandler := handler.NewProfileHandler(deps.Profiles, cfg.HTTP.MaxUploadBytes)
	auth := middleware.Auth(deps.Tokens)
	limiter := middleware.RateLimit(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)

	// --- User routes ---
	users := e.Group("/api/v1/users")
	users.POST("/register", authHandler.Register, limiter)
	users.POST("/login", authHandler.Login, limiter)
	users.POST("/refresh-token", authHandler.RefreshToken, limiter)

	users.POST("/logout", authHandler.Logout, auth)
	users.POST("/change-password", authHandler.ChangePassword, auth)
	users.GET("/current-user", authHandler.CurrentUser, auth)
	users.PATCH("/update-account", profileHandler.UpdateAccount, auth)
	users.PATCH("/avatar", profileHandler.UpdateAvatar, auth)
	users.PATCH("/cover-image", profileHandler.UpdateCoverImage, auth)
	users.GET("/history", profileHandler.WatchHistory, auth)
	users.GET("/c/:username", profileHandler.ChannelProfile, middleware.OptionalAuth(deps.Tokens))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Ops ---
	e.GET("/metrics", metricsHandler(deps.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// corsMiddleware only allows credentials for an explicit origin; browsers
// reject credentialed responses to a wildcard anyway.
func corsMiddleware(origin string) echo.MiddlewareFunc {
	return echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: origin != "*",
	})
}

func prometheusMiddleware(reg *prometheus.Registry) echo.MiddlewareFunc {
	cfg := echoprometheus.MiddlewareConfig{
		Subsystem: "accounts",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}
	if reg != nil {
		cfg.Registerer = reg
	}
	return echoprometheus.NewMiddlewareWithConfig(cfg)
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}
