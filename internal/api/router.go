package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/higher/admin-access/docs"
	"github.com/higher/admin-access/internal/api/handler"
	"github.com/higher/admin-access/internal/api/middleware"
	"github.com/higher/admin-access/internal/core/domain"
	"github.com/higher/admin-access/internal/core/ports"
)

const (
	defaultBodyLimit  = "1M"
	rateLimiterExpiry = 3 * time.Minute
)

// Deps carries everything the router needs. Readiness may be empty.
type Deps struct {
	AuthService   ports.AuthService
	AccessService ports.AccessService
	Readiness     map[string]handler.DependencyCheck
	Log           zerolog.Logger
	CORSOrigins   []string
	BodyLimit     string

	// CredentialRate limits login and password reset attempts per client IP.
	// Zero disables the limiter.
	CredentialRate  rate.Limit
	CredentialBurst int

	// Registerer receives the HTTP request metrics. Nil means the default
	// Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	bodyLimit := d.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	if len(d.CORSOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins: d.CORSOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "admin_access",
		Subsystem:  "http",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	accessHandler := handler.NewAccessHandler(d.AccessService)
	userHandler := handler.NewUserHandler(d.AuthService)

	authenticated := middleware.Authenticate(d.AuthService)
	grant := func(op string) echo.MiddlewareFunc {
		return middleware.RequireGrant(d.AccessService, op)
	}

	credentialLimit := credentialLimiter(d.CredentialRate, d.CredentialBurst)

	// --- Auth routes ---
	e.POST("/auth/signup", authHandler.Signup, middleware.OptionalAuthenticate(d.AuthService))
	e.POST("/auth/login", authHandler.Login, credentialLimit...)
	e.POST("/auth/introspect", authHandler.Introspect)
	e.POST("/auth/reset-password", authHandler.ResetPassword, credentialLimit...)

	// --- Access administration ---
	e.PUT("/access", accessHandler.Replace, authenticated, grant(domain.OpUpdateAccess))
	e.POST("/access/verify", accessHandler.Verify, authenticated)
	e.GET("/access/:user_id", accessHandler.List, authenticated, grant(domain.OpViewAccess))

	// --- User administration ---
	e.GET("/users", userHandler.List, authenticated, grant(domain.OpViewUsers))
	e.PUT("/users/password", userHandler.SetPassword, authenticated, grant(domain.OpUpdatePassword))
	e.PUT("/users/status", userHandler.SetStatus, authenticated, grant(domain.OpUpdateUserStatus))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Readiness, d.Log)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// credentialLimiter returns a per-IP rate limiter, or nothing when limit is zero.
func credentialLimiter(limit rate.Limit, burst int) []echo.MiddlewareFunc {
	if limit <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: rateLimiterExpiry,
	})
	return []echo.MiddlewareFunc{echomiddleware.RateLimiter(store)}
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Status >= 400 || v.Error != nil:
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
