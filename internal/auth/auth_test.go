package auth_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/hebday/internal/auth"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/store"
	"github.com/zalando/go-keyring"
)

// movableClock lets a test advance time between calls.
type movableClock struct{ at *time.Time }

func (c movableClock) Now() time.Time { return *c.at }

func newAuth(t *testing.T, opts auth.Options) *auth.Service {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "hebday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc, err := auth.NewService(db, []byte(strings.Repeat("k", config.SessionKeyBytes)), opts)
	require.NoError(t, err)
	return svc
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, auth.VerifyPassword("correct horse", hash))
	assert.False(t, auth.VerifyPassword("Correct horse", hash))
	assert.False(t, auth.VerifyPassword("correct horse", "garbage"))
	assert.False(t, auth.VerifyPassword("correct horse", "!!$!!"))

	other, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "each hash has its own salt")
}

func TestSigningKey(t *testing.T) {
	keyring.MockInit()

	first, err := auth.SigningKey()
	require.NoError(t, err)
	assert.Len(t, first, config.SessionKeyBytes)

	second, err := auth.SigningKey()
	require.NoError(t, err)
	assert.Equal(t, first, second, "key is stored and reused")

	require.NoError(t, keyring.Set(config.KeyringService, config.KeyringSessionKey, "not hex"))
	replaced, err := auth.SigningKey()
	require.NoError(t, err)
	assert.Len(t, replaced, config.SessionKeyBytes)
	assert.NotEqual(t, first, replaced)
}

func TestRegister(t *testing.T) {
	svc := newAuth(t, auth.Options{})
	ctx := context.Background()

	admin, err := svc.Register(ctx, " Admin@Example.com ", "Admin", "password1")
	require.NoError(t, err)
	assert.Equal(t, config.RoleAdmin, admin.Role, "first account is an admin")
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.NotEqual(t, "password1", admin.PasswordHash)

	user, err := svc.Register(ctx, "user@example.com", "User", "password2")
	require.NoError(t, err)
	assert.Equal(t, config.RoleUser, user.Role)

	tests := []struct {
		name    string
		email   string
		pass    string
		wantErr error
	}{
		{"Duplicate ignores case", "ADMIN@example.com", "password3", auth.ErrEmailTaken},
		{"Invalid email", "not-an-email", "password3", auth.ErrInvalidEmail},
		{"Short password", "new@example.com", "short", auth.ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, "", tt.pass)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoginAndAuthenticate(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newAuth(t, auth.Options{TTL: time.Hour, Clock: movableClock{at: &now}})
	ctx := context.Background()

	u, err := svc.Register(ctx, "a@example.com", "A", "password1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	sess, err := svc.Login(ctx, "A@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
	assert.Equal(t, u.ID, sess.User.ID)

	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	t.Run("Tampered token", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, sess.Token+"x")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		_, err = svc.Authenticate(ctx, "no-separator")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("Token of an unknown user", func(t *testing.T) {
		other := newAuth(t, auth.Options{Clock: movableClock{at: &now}})
		_, err := other.Authenticate(ctx, sess.Token)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("Expired token", func(t *testing.T) {
		now = now.Add(2 * time.Hour)
		defer func() { now = now.Add(-2 * time.Hour) }()

		_, err := svc.Authenticate(ctx, sess.Token)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		assert.Contains(t, err.Error(), config.ErrTokenExpired)
	})
}

func TestLogout(t *testing.T) {
	svc := newAuth(t, auth.Options{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "A", "password1")
	require.NoError(t, err)
	first, err := svc.Login(ctx, "a@example.com", "password1")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "a@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(first.Token))

	_, err = svc.Authenticate(ctx, first.Token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrTokenRevoked)

	_, err = svc.Authenticate(ctx, second.Token)
	assert.NoError(t, err, "other sessions stay valid")

	assert.ErrorIs(t, svc.Logout("bogus.token"), auth.ErrUnauthenticated)
}

func TestLogin_RateLimited(t *testing.T) {
	svc := newAuth(t, auth.Options{LoginPerMinute: 2})
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "A", "password1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@example.com", "bad-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "a@example.com", "password1")
	assert.NoError(t, err)

	_, err = svc.Login(ctx, "a@example.com", "password1")
	assert.ErrorIs(t, err, auth.ErrRateLimited, "third attempt within a minute")

	_, err = svc.Login(ctx, "b@example.com", "password1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials, "limits are per email")
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, auth.RequireAdmin(store.User{Role: config.RoleAdmin}))
	assert.ErrorIs(t, auth.RequireAdmin(store.User{Role: config.RoleUser}), auth.ErrForbidden)
}

func TestUserContext(t *testing.T) {
	_, ok := auth.UserFrom(context.Background())
	assert.False(t, ok)

	ctx := auth.WithUser(context.Background(), store.User{ID: "u1"})
	u, ok := auth.UserFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)
}

var _ engine.Clock = movableClock{}
