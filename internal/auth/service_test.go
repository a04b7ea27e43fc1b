package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"securityapi/internal/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memoryStore struct {
	mu      sync.Mutex
	users   map[string]auth.User
	findErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]auth.User)}
}

func (s *memoryStore) FindByUsername(_ context.Context, username string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return auth.User{}, s.findErr
	}
	user, ok := s.users[username]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

func (s *memoryStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	return ok, nil
}

func (s *memoryStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) Save(_ context.Context, user auth.User) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return user, nil
}

func (s *memoryStore) delete(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
}

type fixture struct {
	store    *memoryStore
	tokens   *auth.TokenService
	throttle *auth.LoginThrottle
	service  *auth.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := newMemoryStore()
	tokens, err := auth.NewTokenService(testSecret, time.Hour, nil)
	require.NoError(t, err)
	throttle := auth.NewLoginThrottle()
	return fixture{
		store:    store,
		tokens:   tokens,
		throttle: throttle,
		service:  auth.NewService(store, auth.NewBcryptHasher(bcrypt.MinCost), tokens, throttle, nil),
	}
}

type countingHasher struct {
	auth.PasswordHasher
	mu      sync.Mutex
	matches int
}

func (h *countingHasher) Matches(password, hash string) bool {
	h.mu.Lock()
	h.matches++
	h.mu.Unlock()
	return h.PasswordHasher.Matches(password, hash)
}

func (h *countingHasher) reset() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.matches
	h.matches = 0
	return n
}

func TestService_LoginComparesHashForUnknownUsers(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	tokens, err := auth.NewTokenService(testSecret, time.Hour, nil)
	require.NoError(t, err)
	hasher := &countingHasher{PasswordHasher: auth.NewBcryptHasher(bcrypt.MinCost)}
	service := auth.NewService(store, hasher, tokens, auth.NewLoginThrottle(), nil)

	_, err = service.Register(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = service.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Equal(t, 1, hasher.reset())

	_, err = service.Login(ctx, "mallory", "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Equal(t, 1, hasher.reset())
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("stores hashed password", func(t *testing.T) {
		f := newFixture(t)
		user, err := f.service.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)

		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "a@x.com", user.Email)
		assert.NotEqual(t, "secret1", user.PasswordHash)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("duplicate username", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)

		_, err = f.service.Register(ctx, "alice", "other@x.com", "whatever")
		assert.ErrorIs(t, err, auth.ErrDuplicateUsername)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)

		_, err = f.service.Register(ctx, "bob", "a@x.com", "secret2")
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success returns token for the user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)

		result, err := f.service.Login(ctx, "alice", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "alice", result.Username)
		assert.Equal(t, "a@x.com", result.Email)
		assert.Equal(t, "Bearer", result.TokenType)

		subject, err := f.tokens.ExtractSubject(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice", subject)
	})

	t.Run("unknown user and wrong password look the same", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)

		_, wrongPassword := f.service.Login(ctx, "alice", "nope")
		_, unknownUser := f.service.Login(ctx, "mallory", "nope")

		assert.ErrorIs(t, wrongPassword, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, unknownUser, auth.ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	})

	t.Run("unknown users are throttled too", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < auth.MaxLoginAttempts; i++ {
			_, _ = f.service.Login(ctx, "mallory", "nope")
		}
		assert.True(t, f.throttle.IsBlocked("mallory"))
	})

	t.Run("store outage is not a failed attempt", func(t *testing.T) {
		f := newFixture(t)
		f.store.findErr = errors.New("connection refused")

		_, err := f.service.Login(ctx, "alice", "secret1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Zero(t, f.throttle.RemainingLockTime("alice"))
		assert.False(t, f.throttle.IsBlocked("alice"))
	})

	t.Run("success clears earlier failures", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)

		for i := 0; i < auth.MaxLoginAttempts-1; i++ {
			_, _ = f.service.Login(ctx, "alice", "wrong")
		}
		_, err = f.service.Login(ctx, "alice", "secret1")
		require.NoError(t, err)

		for i := 0; i < auth.MaxLoginAttempts-1; i++ {
			_, _ = f.service.Login(ctx, "alice", "wrong")
		}
		assert.False(t, f.throttle.IsBlocked("alice"))
	})

	t.Run("locked account rejects even the right password", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)

		for i := 0; i < auth.MaxLoginAttempts; i++ {
			_, err := f.service.Login(ctx, "alice", "wrong")
			require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		}

		_, err = f.service.Login(ctx, "alice", "secret1")
		var limited auth.ErrRateLimited
		require.ErrorAs(t, err, &limited)
		assert.Greater(t, limited.Remaining, time.Duration(0))
	})
}

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Register(ctx, "alice", "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.service.Register(ctx, "alice", "another@x.com", "different")
	require.ErrorIs(t, err, auth.ErrDuplicateUsername)

	for i := 0; i < auth.MaxLoginAttempts; i++ {
		_, err := f.service.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	_, err = f.service.Login(ctx, "alice", "wrong")
	var limited auth.ErrRateLimited
	require.ErrorAs(t, err, &limited)
	assert.InDelta(t, 900, limited.RemainingSeconds(), 2)

	f.throttle.LoginSucceeded("alice")

	result, err := f.service.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.True(t, f.tokens.Validate(result.Token))
	subject, err := f.tokens.ExtractSubject(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestService_ResolveCurrentIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token resolves the user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)
		token, err := f.tokens.Issue("alice")
		require.NoError(t, err)

		user, err := f.service.ResolveCurrentIdentity(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "a@x.com", user.Email)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.ResolveCurrentIdentity(ctx, "garbage")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("user no longer exists", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, "alice", "a@x.com", "secret1")
		require.NoError(t, err)
		token, err := f.tokens.Issue("alice")
		require.NoError(t, err)

		f.store.delete("alice")

		_, err = f.service.ResolveCurrentIdentity(ctx, token)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("store outage is not reported as unauthenticated", func(t *testing.T) {
		f := newFixture(t)
		token, err := f.tokens.Issue("alice")
		require.NoError(t, err)
		f.store.findErr = errors.New("connection refused")

		_, err = f.service.ResolveCurrentIdentity(ctx, token)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrUnauthenticated)
	})
}
