package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	_ "secrets/docs"
	"secrets/internal/auth"
	"secrets/internal/config"
	"secrets/internal/errors"
	"secrets/internal/handler"
	"secrets/internal/logging"
	"secrets/internal/metrics"
	"secrets/internal/repository"
	"secrets/internal/router"
	"secrets/internal/service"
	"secrets/internal/validation"
)

func newTestServer(t *testing.T, rateLimit int) *echo.Echo {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
		JWTSecret:   "test-secret",
		BcryptCost:  config.MinBcryptCost,
		StoreDriver: config.StoreMemory,
		RateLimit:   rateLimit,
		LogFormat:   "text",
	}
	logger := logging.Discard()

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewJWTService(cfg.JWTSecret)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics.RegisterMetrics(registry)

	users := repository.NewMemoryUserRepository()
	authService, err := service.NewAuthService(users, service.NewUserService(users, nil), hasher, tokens, validation.New(), logger)
	require.NoError(t, err)

	e := echo.New()
	router.Register(e, router.Deps{
		Config:      cfg,
		Logger:      logger,
		Verifier:    tokens,
		Gatherer:    registry,
		AuthHandler: handler.NewAuthHandler(authService, cfg.IsProduction(), logger),
		UserHandler: handler.NewUserHandler(authService, logger),
	})
	return e
}

func do(e *echo.Echo, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errors.ErrorResponse {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %q cookie in response", auth.SessionCookieName)
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	e := newTestServer(t, 100)

	rec := do(e, http.MethodPost, "/api/register", `{"name":"Ann","email":"ann@x.com","password":"Ann123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(e, http.MethodPost, "/api/login", `{"email":"ann@x.com","password":"Ann123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.False(t, cookie.Secure)

	rec = do(e, http.MethodGet, "/api/user", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profile map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "ann@x.com", profile["email"])
	assert.Equal(t, "Ann", profile["name"])
	assert.Contains(t, profile, "createdAt")
	assert.NotContains(t, profile, "password")
	assert.NotContains(t, profile, "passwordHash")

	rec = do(e, http.MethodPost, "/api/logout", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	// A browser would have dropped the cookie now.
	rec = do(e, http.MethodGet, "/api/user", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied. No token provided.", decodeError(t, rec).Error)

	// Logout is stateless: a copy of the old token still works until expiry.
	rec = do(e, http.MethodGet, "/api/user", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e := newTestServer(t, 100)
	body := `{"name":"Ann","email":"ann@x.com","password":"Ann123"}`

	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/register", body).Code)

	rec := do(e, http.MethodPost, "/api/register", `{"name":"Other","email":"ann@x.com","password":"Xyz789"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", decodeError(t, rec).Error)

	// The first registration is untouched.
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/login", `{"email":"ann@x.com","password":"Ann123"}`).Code)
}

func TestLoginFailuresLookIdentical(t *testing.T) {
	e := newTestServer(t, 100)
	require.Equal(t, http.StatusCreated,
		do(e, http.MethodPost, "/api/register", `{"name":"Ann","email":"ann@x.com","password":"Ann123"}`).Code)

	wrongPassword := do(e, http.MethodPost, "/api/login", `{"email":"ann@x.com","password":"Ann124"}`)
	unknownEmail := do(e, http.MethodPost, "/api/login", `{"email":"bob@x.com","password":"Ann123"}`)

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Empty(t, wrongPassword.Result().Cookies())
	assert.Empty(t, unknownEmail.Result().Cookies())
}

func TestRegisterValidationMessages(t *testing.T) {
	e := newTestServer(t, 100)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing field", `{"name":"Ann","email":"ann@x.com"}`, errors.MsgAllFieldsRequired},
		{"bad email", `{"name":"Ann","email":"ann@x","password":"Ann123"}`, errors.MsgInvalidEmail},
		{"too long", `{"name":"Ann","email":"ann@x.com","password":"Ann123456"}`, errors.MsgPasswordPolicy},
		{"bad charset", `{"name":"Ann","email":"ann@x.com","password":"Ann-12"}`, errors.MsgPasswordPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, rec).Error)
		})
	}
}

func TestBadSessionTokens(t *testing.T) {
	e := newTestServer(t, 100)

	other, err := auth.NewJWTService("another-secret")
	require.NoError(t, err)
	forged, _, err := other.Issue(1, "ann@x.com")
	require.NoError(t, err)

	for name, value := range map[string]string{
		"garbage": "not-a-token",
		"forged":  forged,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(e, http.MethodGet, "/api/user", "", &http.Cookie{Name: auth.SessionCookieName, Value: value})
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, "Invalid token.", decodeError(t, rec).Error)
		})
	}
}

func TestValidTokenForMissingUser(t *testing.T) {
	e := newTestServer(t, 100)

	tokens, err := auth.NewJWTService("test-secret")
	require.NoError(t, err)
	token, _, err := tokens.Issue(42, "ghost@x.com")
	require.NoError(t, err)

	rec := do(e, http.MethodGet, "/api/user", "", &http.Cookie{Name: auth.SessionCookieName, Value: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeError(t, rec).Error)
}

func TestUnknownRouteRendersErrorResponse(t *testing.T) {
	e := newTestServer(t, 100)

	for _, target := range []string{"/api/nope", "/api/debug/users", "/nope"} {
		t.Run(target, func(t *testing.T) {
			rec := do(e, http.MethodGet, target, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec).Error)
		})
	}
}

func TestWrongMethodOnSecuredRouteSkipsSession(t *testing.T) {
	e := newTestServer(t, 100)

	rec := do(e, http.MethodPost, "/api/user", "")
	assert.Contains(t, []int{http.StatusNotFound, http.StatusMethodNotAllowed}, rec.Code)
	assert.NotEqual(t, "Access denied. No token provided.", decodeError(t, rec).Error)
}

func TestBodyLimit(t *testing.T) {
	e := newTestServer(t, 100)

	huge := `{"name":"` + strings.Repeat("a", 11*1024) + `","email":"ann@x.com","password":"Ann123"}`
	rec := do(e, http.MethodPost, "/api/register", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRateLimit(t *testing.T) {
	e := newTestServer(t, 2)
	body := `{"email":"ann@x.com","password":"Ann123"}`

	do(e, http.MethodPost, "/api/login", body)
	do(e, http.MethodPost, "/api/login", body)
	rec := do(e, http.MethodPost, "/api/login", body)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)
}

func TestOperationalEndpoints(t *testing.T) {
	e := newTestServer(t, 100)

	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	do(e, http.MethodPost, "/api/login", `{"email":"ann@x.com","password":"Ann123"}`)
	rec = do(e, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "secrets_auth_operations_total")

	rec = do(e, http.MethodGet, "/swagger/doc.json", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/register")
}

func TestSecureHeaders(t *testing.T) {
	e := newTestServer(t, 100)

	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get(echo.HeaderXFrameOptions))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
