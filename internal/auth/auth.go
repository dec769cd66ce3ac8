// Package auth handles accounts and sessions: Argon2id password hashes,
// HMAC-signed bearer tokens and per-email login throttling.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/store"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidCredentials = errors.New(config.ErrInvalidCredentials)
	ErrEmailTaken         = errors.New(config.ErrEmailTaken)
	ErrRateLimited        = errors.New(config.ErrRateLimited)
	ErrForbidden          = errors.New(config.ErrForbidden)
	ErrUnauthenticated    = errors.New(config.ErrUnauthenticated)
	ErrWeakPassword       = errors.New(config.ErrWeakPassword)
	ErrInvalidEmail       = errors.New(config.ErrInvalidEmail)
)

const (
	tokenSeparator   = "."
	payloadSeparator = "|"
	limiterEntries   = 1024
)

// Session is the result of a successful login.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      store.User `json:"user"`
}

// Options tune a Service. Zero values use the defaults.
type Options struct {
	TTL            time.Duration
	LoginPerMinute int
	Clock          engine.Clock
}

// Service registers users, signs them in and validates their tokens.
type Service struct {
	db    *store.DB
	key   []byte
	ttl   time.Duration
	clock engine.Clock

	limiters *lru.Cache[string, *rate.Limiter]
	perMin   int

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
}

// NewService creates a Service signing tokens with key.
func NewService(db *store.DB, key []byte, opts Options) (*Service, error) {
	if opts.TTL <= 0 {
		opts.TTL = config.DefaultSessionTTL
	}
	if opts.LoginPerMinute <= 0 {
		opts.LoginPerMinute = config.DefaultLoginPerMinute
	}
	if opts.Clock == nil {
		opts.Clock = engine.RealClock{}
	}
	limiters, err := lru.New[string, *rate.Limiter](limiterEntries)
	if err != nil {
		return nil, err
	}
	return &Service{
		db:       db,
		key:      key,
		ttl:      opts.TTL,
		clock:    opts.Clock,
		limiters: limiters,
		perMin:   opts.LoginPerMinute,
		revoked:  make(map[string]time.Time),
	}, nil
}

// Register creates an account. The very first account becomes an admin.
func (s *Service) Register(ctx context.Context, email, name, password string) (store.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return store.User{}, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	if len(password) < config.MinPassLength {
		return store.User{}, ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return store.User{}, err
	}

	count, err := s.db.CountUsers(ctx)
	if err != nil {
		return store.User{}, err
	}
	role := config.RoleUser
	if count == 0 {
		role = config.RoleAdmin
	}

	u := store.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(addr.Address),
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.db.CreateUser(ctx, u); err != nil {
		if store.IsUniqueViolation(err) {
			return store.User{}, ErrEmailTaken
		}
		return store.User{}, err
	}

	slog.Info(config.MsgUserRegistered,
		config.LogKeyComponent, config.CompAuth,
		config.LogKeyUser, u.Email,
		config.LogKeyRole, u.Role,
	)
	return u, nil
}

// Login checks credentials and issues a token. Attempts are throttled per
// email address whether they succeed or not.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	log := slog.With(config.LogKeyComponent, config.CompAuth, config.LogKeyUser, email)

	if !s.limiter(email).Allow() {
		log.Warn(config.MsgLoginFailed, config.LogKeyError, ErrRateLimited)
		return Session{}, ErrRateLimited
	}

	u, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info(config.MsgLoginFailed)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !VerifyPassword(password, u.PasswordHash) {
		log.Info(config.MsgLoginFailed)
		return Session{}, ErrInvalidCredentials
	}

	expires := s.clock.Now().Add(s.ttl)
	log.Info(config.MsgLoginSuccess)
	return Session{Token: s.sign(u.ID, uuid.NewString(), expires), ExpiresAt: expires, User: u}, nil
}

// Authenticate returns the user a token was issued to.
func (s *Service) Authenticate(ctx context.Context, token string) (store.User, error) {
	userID, _, _, err := s.verify(token)
	if err != nil {
		return store.User{}, err
	}
	u, err := s.db.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, ErrUnauthenticated
		}
		return store.User{}, err
	}
	return u, nil
}

// Logout revokes token until it would have expired anyway.
func (s *Service) Logout(token string) error {
	_, id, expires, err := s.verify(token)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, k)
		}
	}
	s.revoked[id] = expires
	return nil
}

// RequireAdmin fails unless u has the admin role.
func RequireAdmin(u store.User) error {
	if u.Role != config.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *Service) limiter(email string) *rate.Limiter {
	if l, ok := s.limiters.Get(email); ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMin)), s.perMin)
	// A concurrent first attempt may have stored one already.
	if prev, ok, _ := s.limiters.PeekOrAdd(email, l); ok {
		return prev
	}
	return l
}

// sign encodes "userID|tokenID|expiry" and appends its HMAC-SHA256.
func (s *Service) sign(userID, tokenID string, expires time.Time) string {
	payload := strings.Join([]string{userID, tokenID, strconv.FormatInt(expires.Unix(), 10)}, payloadSeparator)
	enc := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return enc + tokenSeparator + base64.RawURLEncoding.EncodeToString(s.mac(enc))
}

func (s *Service) mac(data string) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(data))
	return m.Sum(nil)
}

func (s *Service) verify(token string) (userID, tokenID string, expires time.Time, err error) {
	enc, sig, ok := strings.Cut(token, tokenSeparator)
	if !ok {
		return "", "", time.Time{}, fmt.Errorf("%w: %s", ErrUnauthenticated, config.ErrTokenMalformed)
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(got, s.mac(enc)) {
		return "", "", time.Time{}, fmt.Errorf("%w: %s", ErrUnauthenticated, config.ErrTokenMalformed)
	}
	raw, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: %s", ErrUnauthenticated, config.ErrTokenMalformed)
	}
	parts := strings.Split(string(raw), payloadSeparator)
	if len(parts) != 3 {
		return "", "", time.Time{}, fmt.Errorf("%w: %s", ErrUnauthenticated, config.ErrTokenMalformed)
	}
	unix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: %s", ErrUnauthenticated, config.ErrTokenMalformed)
	}

	expires = time.Unix(unix, 0)
	if !expires.After(s.clock.Now()) {
		return "", "", time.Time{}, fmt.Errorf("%w: %s", ErrUnauthenticated, config.ErrTokenExpired)
	}

	s.mu.Lock()
	_, revoked := s.revoked[parts[1]]
	s.mu.Unlock()
	if revoked {
		return "", "", time.Time{}, fmt.Errorf("%w: %s", ErrUnauthenticated, config.ErrTokenRevoked)
	}
	return parts[0], parts[1], expires, nil
}

type ctxKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u store.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFrom returns the user stored by WithUser.
func UserFrom(ctx context.Context) (store.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(store.User)
	return u, ok
}
