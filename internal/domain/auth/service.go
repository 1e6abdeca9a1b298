// Package auth handles accounts, passwords and tokens. Login attempts
// run through the guard's failure tracker, so repeated bad passwords
// lock an account out for the configured window.
package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/eventbus"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/errors"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

// Sentinel errors surfaced to the transport layer. Both are wrapped in
// platform errors; match with errors.Is.
var (
	ErrInvalidCredentials = stderrors.New("invalid username or password")
	ErrLockedOut          = stderrors.New("account temporarily locked")
	ErrUserExists         = stderrors.New("username or email already registered")
)

// Options encapsulates the dependencies required to construct a Service.
type Options struct {
	DB       *gorm.DB
	Tracker  *guard.FailureTracker
	Logger   *logging.Logger
	Secret   string
	TokenTTL time.Duration
}

// Service coordinates account storage, password checks and tokens.
type Service struct {
	db      *gorm.DB
	tracker *guard.FailureTracker
	logger  *logging.Logger
	tokens  *AuthToken
}

// NewService wires a Service using the supplied options.
func NewService(opts Options) (*Service, error) {
	if opts.DB == nil {
		return nil, errors.New(errors.KindBootstrap, "auth.new", "auth service requires a database")
	}
	if opts.Tracker == nil {
		return nil, errors.New(errors.KindBootstrap, "auth.new", "auth service requires a failure tracker")
	}
	if opts.Secret == "" {
		return nil, errors.New(errors.KindBootstrap, "auth.new", "auth service requires a signing secret")
	}
	return &Service{
		db:      opts.DB,
		tracker: opts.Tracker,
		logger:  opts.Logger,
		tokens:  NewAuthToken(opts.Secret).WithTTL(opts.TokenTTL),
	}, nil
}

// Register creates a new account with a hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (*storage.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New(errors.KindTransport, "auth.register", "username and password are required")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "auth.register", "hash password", err)
	}

	user := storage.User{
		Username: username,
		Email:    strings.TrimSpace(email),
		Password: hash,
		Role:     "user",
		Status:   1,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(errors.KindTransport, "auth.register", "duplicate account", ErrUserExists)
		}
		return nil, errors.Wrap(errors.KindStorage, "auth.register", "create user", err)
	}

	s.logger.InfoTag("AUTH", "registered user", "username", username)
	return &user, nil
}

// Login verifies credentials and issues a token. Lockout is checked
// before the password so a locked account leaks nothing about whether
// the password was right.
func (s *Service) Login(ctx context.Context, username, password string) (string, *storage.User, error) {
	locked, err := s.tracker.IsLockedOut(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if locked {
		remaining, err := s.tracker.RemainingLockout(ctx, username)
		if err != nil {
			return "", nil, err
		}
		s.logger.WarnTag("AUTH", "login rejected, account locked",
			"username", username, "remaining", remaining.String())
		eventbus.PublishAsync(eventbus.TopicLoginLockout, eventbus.LoginEvent{Identifier: username})
		return "", nil, errors.Wrap(errors.KindGuard, "auth.login", "account locked", ErrLockedOut)
	}

	var user storage.User
	findErr := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	authenticated := findErr == nil && user.Status == 1 && CheckPassword(user.Password, password)

	if !authenticated {
		if findErr != nil && !stderrors.Is(findErr, gorm.ErrRecordNotFound) {
			return "", nil, errors.Wrap(errors.KindStorage, "auth.login", "lookup user", findErr)
		}
		if err := s.tracker.RecordFailure(ctx, username); err != nil {
			return "", nil, err
		}
		s.logger.WarnTag("AUTH", "login failed", "username", username)
		eventbus.PublishAsync(eventbus.TopicLoginFailure, eventbus.LoginEvent{Identifier: username})
		return "", nil, errors.Wrap(errors.KindTransport, "auth.login", "bad credentials", ErrInvalidCredentials)
	}

	if err := s.tracker.ClearFailures(ctx, username); err != nil {
		return "", nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return "", nil, errors.Wrap(errors.KindUnknown, "auth.login", "issue token", err)
	}

	s.logger.InfoTag("AUTH", "login succeeded", "username", username)
	return token, &user, nil
}

// RemainingLockout exposes the lockout countdown for the login handler's
// Retry-After response.
func (s *Service) RemainingLockout(ctx context.Context, username string) (time.Duration, error) {
	return s.tracker.RemainingLockout(ctx, username)
}

// VerifyToken validates a bearer token and returns the user identity.
func (s *Service) VerifyToken(token string) (uint, string, error) {
	return s.tokens.VerifyToken(token)
}

func isUniqueViolation(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
