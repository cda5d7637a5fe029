package router

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"secrets/internal/auth"
	"secrets/internal/config"
	"secrets/internal/errors"
	"secrets/internal/handler"
	"secrets/internal/middleware"
)

const rateLimitWindow = 15 * time.Minute

// Deps are the collaborators the routes need.
type Deps struct {
	Config      *config.Config
	Logger      *slog.Logger
	Verifier    auth.TokenVerifier
	Gatherer    prometheus.Gatherer
	AuthHandler *handler.AuthHandler
	UserHandler *handler.UserHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, d Deps) {
	e.HTTPErrorHandler = ErrorHandler(d.Logger)

	e.Use(middleware.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(requestLoggerConfig(d.Logger)))
	e.Use(echomw.Recover())
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            15552000,
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline' https://cdnjs.cloudflare.com; script-src 'self'; img-src 'self' data: https:; font-src 'self' https://cdnjs.cloudflare.com",
		ReferrerPolicy:        "no-referrer",
	}))
	e.Use(corsMiddleware(d.Config))
	e.Use(echomw.BodyLimit("10K"))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api", rateLimiter(d.Config.RateLimit))

	// Public routes
	api.POST("/register", d.AuthHandler.Register)
	api.POST("/login", d.AuthHandler.Login)
	api.POST("/logout", d.AuthHandler.Logout)

	// Secured routes (require a session cookie)
	api.GET("/user", d.UserHandler.GetCurrentUser, middleware.Session(d.Verifier, d.Logger))

	if d.Config.StaticDir != "" {
		e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
			Root:  d.Config.StaticDir,
			Index: "index.html",
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/")
			},
		}))
	}
}

// ErrorHandler renders every error as an errors.ErrorResponse. Echo's own
// errors (unknown route, oversized body, rate limit) keep their status code.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := errors.ErrorResponse{Error: errors.MsgInternal, Code: "INTERNAL_ERROR"}

		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			switch m := he.Message.(type) {
			case errors.ErrorResponse:
				body = m
			case string:
				body = errors.ErrorResponse{Error: m}
			default:
				if status < http.StatusInternalServerError {
					body = errors.ErrorResponse{Error: http.StatusText(status)}
				}
			}
		} else {
			httpErr := errors.MapErrorToHTTP(err)
			status = httpErr.StatusCode
			body = httpErr.ToErrorResponse()
		}

		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "unhandled error", "path", c.Path(), "error", err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.ErrorContext(c.Request().Context(), "write error response", "error", werr)
		}
	}
}

func requestLoggerConfig(logger *slog.Logger) echomw.RequestLoggerConfig {
	return echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			ctx := c.Request().Context()
			if v.Error != nil && v.Status >= http.StatusInternalServerError {
				logger.ErrorContext(ctx, "request", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.InfoContext(ctx, "request", attrs...)
			return nil
		},
	}
}

func corsMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	conf := echomw.CORSConfig{
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
	}
	switch {
	case cfg.AllowedOrigin != "":
		conf.AllowOrigins = []string{cfg.AllowedOrigin}
	case cfg.IsProduction():
		// same-origin only: no CORS headers at all
		conf.Skipper = func(echo.Context) bool { return true }
	default:
		conf.UnsafeWildcardOriginWithAllowCredentials = true
		conf.AllowOrigins = []string{"*"}
	}
	return echomw.CORSWithConfig(conf)
}

func rateLimiter(perWindow int) echo.MiddlewareFunc {
	limit := rate.Limit(float64(perWindow) / rateLimitWindow.Seconds())
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     perWindow,
		ExpiresIn: rateLimitWindow,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
				Error: "Too many requests from this IP, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	})
}
