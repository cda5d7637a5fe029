package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"secrets/internal/errors"
	"secrets/internal/middleware"
	"secrets/internal/service"
)

// UserHandler serves the signed-in user's profile.
type UserHandler struct {
	authService service.AuthService
	logger      *slog.Logger
}

// NewUserHandler creates a handler layer.
func NewUserHandler(authService service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{authService: authService, logger: logger}
}

// GetCurrentUser godoc
// @Summary Current user
// @Description Requires the session cookie set by /login.
// @Tags users
// @Produce json
// @Success 200 {object} model.Profile
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /user [get]
func (h *UserHandler) GetCurrentUser(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return respondError(c, h.logger, errors.ErrUnauthenticated)
	}

	profile, err := h.authService.Profile(c.Request().Context(), claims.UserID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// respondError maps err to a JSON error response. Internal errors are logged
// with their detail and reach the client only as a generic message.
func respondError(c echo.Context, logger *slog.Logger, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.IsInternal() {
		logger.ErrorContext(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
