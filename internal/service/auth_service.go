package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"secrets/internal/auth"
	"secrets/internal/errors"
	"secrets/internal/metrics"
	"secrets/internal/model"
	"secrets/internal/repository"
	"secrets/internal/validation"
)

// timingPassword is hashed once and compared against when a login names an
// unknown email, so both failure paths cost one bcrypt comparison.
const timingPassword = "Timing1!"

// RegisterInput carries the registration form.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,emailshape"`
	Password string `json:"password" validate:"required,password"`
}

// LoginInput carries the login form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,emailshape"`
	Password string `json:"password" validate:"required"`
}

// RequiredMessage implements validation.RequiredMessager.
func (LoginInput) RequiredMessage() string {
	return errors.MsgLoginFieldsRequired
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User      *model.PublicUser
	Token     string
	ExpiresAt time.Time
}

// TokenService issues and verifies session tokens.
type TokenService interface {
	auth.TokenIssuer
	auth.TokenVerifier
}

// AuthService handles authentication operations.
//
// Registration never authenticates: the caller must log in afterwards.
// Logout is stateless and a token issued before it stays valid until expiry.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.PublicUser, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, token string)
	WhoAmI(ctx context.Context, token string) (*model.Profile, error)
	Profile(ctx context.Context, userID uint) (*model.Profile, error)
}

type authService struct {
	users     repository.UserRepository
	profiles  UserService
	hasher    auth.PasswordHasher
	tokens    TokenService
	validator *validation.Validator
	logger    *slog.Logger

	// digest of timingPassword, compared against for unknown emails
	timingHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	profiles UserService,
	hasher auth.PasswordHasher,
	tokens TokenService,
	validator *validation.Validator,
	logger *slog.Logger,
) (AuthService, error) {
	timingHash, err := hasher.Hash(timingPassword)
	if err != nil {
		return nil, oops.Code("AUTH_TIMING_DIGEST_FAILED").Wrapf(err, "hash timing password")
	}
	return &authService{
		users:      users,
		profiles:   profiles,
		hasher:     hasher,
		tokens:     tokens,
		validator:  validator,
		logger:     logger.With("component", "auth"),
		timingHash: timingHash,
	}, nil
}

// Register validates the form, hashes the password and stores the user.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.PublicUser, error) {
	user, err := s.register(ctx, in)
	metrics.Record(metrics.OpRegister, outcomeOf(err))
	if err != nil {
		s.logFailure(ctx, "registration failed", err, "email", in.Email)
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "email", user.Email)
	return user.Public(), nil
}

func (s *authService) register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	// Fast path so an obvious duplicate does not pay for bcrypt. Create is
	// still the authority on uniqueness.
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, errors.ErrDuplicateEmail
	} else if !stderrors.Is(err, errors.ErrUserNotFound) {
		return nil, oops.Code("REGISTER_LOOKUP_FAILED").Wrapf(err, "check email")
	}

	start := time.Now()
	digest, err := s.hasher.Hash(in.Password)
	metrics.PasswordHashDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, oops.Code("REGISTER_HASH_FAILED").Wrap(err)
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: digest,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if stderrors.Is(err, errors.ErrDuplicateEmail) {
			return nil, errors.ErrDuplicateEmail
		}
		return nil, oops.Code("REGISTER_CREATE_FAILED").Wrapf(err, "create user")
	}
	return user, nil
}

// Login checks the credentials and issues a session token. Unknown email and
// wrong password produce the same errors.ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	res, err := s.login(ctx, in)
	metrics.Record(metrics.OpLogin, outcomeOf(err))
	if err != nil {
		s.logFailure(ctx, "login failed", err, "email", in.Email)
		return nil, err
	}
	s.logger.InfoContext(ctx, "user logged in", "user_id", res.User.ID, "email", res.User.Email)
	return res, nil
}

func (s *authService) login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if !stderrors.Is(err, errors.ErrUserNotFound) {
			return nil, oops.Code("LOGIN_LOOKUP_FAILED").Wrapf(err, "find user")
		}
		s.hasher.Verify(in.Password, s.timingHash)
		return nil, errors.ErrInvalidCredentials
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, errors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, oops.Code("LOGIN_ISSUE_FAILED").Wrap(err)
	}

	return &LoginResult{User: user.Public(), Token: token, ExpiresAt: expiresAt}, nil
}

// Logout changes no server state; the caller discards the token. The token,
// if still valid, is only used to say who logged out.
func (s *authService) Logout(ctx context.Context, token string) {
	metrics.Record(metrics.OpLogout, metrics.OutcomeSuccess)
	if token == "" {
		s.logger.InfoContext(ctx, "logout without session")
		return
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.InfoContext(ctx, "logout with invalid session")
		return
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", claims.UserID, "email", claims.Email)
}

// WhoAmI verifies token and returns the profile of the user it names.
func (s *authService) WhoAmI(ctx context.Context, token string) (*model.Profile, error) {
	if token == "" {
		metrics.Record(metrics.OpWhoAmI, metrics.OutcomeUnauthenticated)
		return nil, errors.ErrUnauthenticated
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		metrics.Record(metrics.OpWhoAmI, metrics.OutcomeInvalidToken)
		s.logger.WarnContext(ctx, "invalid session token", "error", err)
		return nil, err
	}
	return s.Profile(ctx, claims.UserID)
}

// Profile returns the profile for an already verified user id.
func (s *authService) Profile(ctx context.Context, userID uint) (*model.Profile, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	metrics.Record(metrics.OpWhoAmI, outcomeOf(err))
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "user not found for session", "user_id", userID)
			return nil, errors.ErrUserNotFound
		}
		s.logger.ErrorContext(ctx, "profile lookup failed", "user_id", userID, "error", err)
		return nil, oops.Code("PROFILE_LOOKUP_FAILED").Wrap(err)
	}
	return profile, nil
}

func (s *authService) logFailure(ctx context.Context, msg string, err error, args ...any) {
	if errors.MapErrorToHTTP(err).IsInternal() {
		s.logger.ErrorContext(ctx, msg, append(args, "error", err)...)
		return
	}
	s.logger.InfoContext(ctx, msg, append(args, "reason", err.Error())...)
}

func outcomeOf(err error) string {
	var verr *errors.ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case stderrors.As(err, &verr):
		return metrics.OutcomeValidationError
	case stderrors.Is(err, errors.ErrDuplicateEmail):
		return metrics.OutcomeDuplicateEmail
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		return metrics.OutcomeInvalidCredentials
	case stderrors.Is(err, errors.ErrUnauthenticated):
		return metrics.OutcomeUnauthenticated
	case stderrors.Is(err, errors.ErrInvalidToken):
		return metrics.OutcomeInvalidToken
	case stderrors.Is(err, errors.ErrUserNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
