package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"securityapi/internal/observability"
)

// CredentialStore looks up and persists users.
type CredentialStore interface {
	// FindByUsername returns ErrUserNotFound when no such user exists.
	FindByUsername(ctx context.Context, username string) (User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, user User) (User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(password, hash string) bool
}

type Service struct {
	users    CredentialStore
	hasher   PasswordHasher
	tokens   *TokenService
	throttle *LoginThrottle
	logger   *observability.Logger

	// dummyHash is compared against when the username is unknown so both
	// outcomes cost one hash comparison.
	dummyHash string
}

func NewService(users CredentialStore, hasher PasswordHasher, tokens *TokenService, throttle *LoginThrottle, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		logger.Warn("dummy_hash_failed", map[string]any{"error": err.Error()})
	}

	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		throttle:  throttle,
		logger:    logger,
		dummyHash: dummyHash,
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)

	if s.throttle.IsBlocked(username) {
		remaining := s.throttle.RemainingLockTime(username)
		observability.LoginAttempts.WithLabelValues(observability.LoginOutcomeRateLimited).Inc()
		s.logger.Warn("login_blocked", map[string]any{
			"username":          username,
			"remaining_seconds": int64(remaining / time.Second),
		})
		return LoginResult{}, ErrRateLimited{Remaining: remaining}
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	found := err == nil

	targetHash := s.dummyHash
	if found {
		targetHash = user.PasswordHash
	}
	matched := s.hasher.Matches(password, targetHash)

	if !found || !matched {
		s.throttle.LoginFailed(username)
		observability.LoginAttempts.WithLabelValues(observability.LoginOutcomeInvalid).Inc()
		s.logger.Info("login_failed", map[string]any{"username": username})
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return LoginResult{}, err
	}
	s.throttle.LoginSucceeded(username)
	observability.LoginAttempts.WithLabelValues(observability.LoginOutcomeSuccess).Inc()
	s.logger.Info("login_succeeded", map[string]any{"username": user.Username})

	return LoginResult{
		Token:     token,
		TokenType: "Bearer",
		Username:  user.Username,
		Email:     user.Email,
	}, nil
}

// ResolveCurrentIdentity maps a bearer token to the user it was issued for.
func (s *Service) ResolveCurrentIdentity(ctx context.Context, token string) (User, error) {
	if !s.tokens.Validate(token) {
		return User{}, ErrUnauthenticated
	}

	subject, err := s.tokens.ExtractSubject(token)
	if err != nil {
		return User{}, ErrUnauthenticated
	}

	user, err := s.users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrUnauthenticated
		}
		return User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *Service) Register(ctx context.Context, username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return User{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return User{}, ErrDuplicateUsername
	}

	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return User{}, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	user, err := s.users.Save(ctx, User{
		ID:           id.String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return User{}, err
	}

	s.logger.Info("user_registered", map[string]any{"username": user.Username})
	return user, nil
}

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDuplicateUsername  = errors.New("username is already taken")
	ErrDuplicateEmail     = errors.New("email is already in use")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
	ErrWeakSigningSecret  = fmt.Errorf("signing secret must be at least %d bytes", MinSigningSecretBytes)
)

// ErrRateLimited is returned by Login while the username is locked.
type ErrRateLimited struct {
	Remaining time.Duration
}

func (e ErrRateLimited) Error() string {
	return "too many failed login attempts"
}

// RemainingSeconds rounds the remaining lock time down to whole seconds.
func (e ErrRateLimited) RemainingSeconds() int64 {
	return int64(e.Remaining / time.Second)
}
