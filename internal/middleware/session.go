package middleware

import (
	stderrors "errors"
	"log/slog"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"secrets/internal/auth"
	"secrets/internal/errors"
)

// ContextKeyClaims is the echo context key holding the verified *auth.Claims.
const ContextKeyClaims = "session"

// Session returns middleware that reads the session token from the cookie,
// verifies it and stores the claims on the context. A missing token is
// rejected with 401 and a present but invalid or expired one with 403.
func Session(verifier auth.TokenVerifier, logger *slog.Logger) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + auth.SessionCookieName,
		ContextKey:  ContextKeyClaims,
		ParseTokenFunc: func(_ echo.Context, raw string) (interface{}, error) {
			if raw == "" {
				return nil, errors.ErrUnauthenticated
			}
			return verifier.Verify(raw)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			ctx := c.Request().Context()
			target := errors.ErrUnauthenticated
			if stderrors.Is(err, errors.ErrInvalidToken) {
				target = errors.ErrInvalidToken
				logger.WarnContext(ctx, "invalid session token", "path", c.Path(), "error", err)
			} else {
				logger.InfoContext(ctx, "no session token", "path", c.Path())
			}
			httpErr := errors.MapErrorToHTTP(target)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		},
	})
}

// ClaimsFromContext returns the claims stored by Session.
func ClaimsFromContext(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(ContextKeyClaims).(*auth.Claims)
	return claims, ok && claims != nil
}
