package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"secrets/internal/errors"
)

const (
	// SessionTokenExpiry is the fixed lifetime of a session token.
	SessionTokenExpiry = 24 * time.Hour
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "token"
)

// Claims represents the session token payload.
type Claims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID uint, email string) (token string, expiresAt time.Time, err error)
}

// TokenVerifier checks session tokens. Every failure is errors.ErrInvalidToken.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// JWTService issues and verifies stateless HS256 session tokens. Nothing is
// stored server side, so a token stays valid until it expires even after logout.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a JWTService.
type Option func(*JWTService)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) { s.now = now }
}

// NewJWTService creates a JWT service with the given secret. An empty secret
// is rejected.
func NewJWTService(secret string, opts ...Option) (*JWTService, error) {
	if secret == "" {
		return nil, oops.Code("AUTH_MISSING_SECRET").Errorf("jwt secret is required")
	}
	s := &JWTService{
		secret: []byte(secret),
		ttl:    SessionTokenExpiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the token lifetime.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the user, valid for TTL from now.
func (s *JWTService) Issue(userID uint, email string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_SIGN_FAILED").Wrapf(err, "sign session token")
	}
	return token, expiresAt, nil
}

// Verify validates signature, payload and expiry and returns the claims.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, errors.ErrInvalidToken
	}

	now := s.now()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, fmt.Errorf("%w: token expired", errors.ErrInvalidToken)
	}
	if !claims.VerifyIssuedAt(now, true) {
		return nil, fmt.Errorf("%w: token used before issued", errors.ErrInvalidToken)
	}
	if claims.UserID == 0 || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing identity", errors.ErrInvalidToken)
	}
	return claims, nil
}
