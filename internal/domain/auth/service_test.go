package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp/totp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/internal/core/atomic"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/cache/redis"
)

// In-memory fakes. The scope runs with no participants so the bodies
// execute directly; transactional behavior is covered by the coordinator
// and adapter tests.

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, email, username, passwordHash string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return nil, apperror.NewConflict("email already registered")
		}
	}
	r.seq++
	user := &User{
		ID:           fmt.Sprintf("u%d", r.seq),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, apperror.NewNotFound("user", id)
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (r *fakeUserRepo) update(id string, fn func(*User)) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, apperror.NewNotFound("user", id)
	}
	fn(user)
	user.UpdatedAt = time.Now()
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) (*User, error) {
	return r.update(id, func(u *User) { u.PasswordHash = passwordHash })
}

func (r *fakeUserRepo) UpdateOTPSecret(ctx context.Context, id, secret string) (*User, error) {
	return r.update(id, func(u *User) { u.OTPSecret = secret })
}

func (r *fakeUserRepo) VerifyEmail(ctx context.Context, id string) (*User, error) {
	now := time.Now()
	return r.update(id, func(u *User) { u.VerifiedAt = &now })
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, id string) (*User, error) {
	now := time.Now()
	return r.update(id, func(u *User) { u.LastLoginAt = &now })
}

func (r *fakeUserRepo) Freeze(ctx context.Context, id string) (*User, error) {
	return r.update(id, func(u *User) { u.Frozen = true })
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*Session)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, user *User, csrf string, expiresAfter *time.Duration, oauthToken *string, provider OAuthProvider) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ttl := 100 * 365 * 24 * time.Hour
	if expiresAfter != nil {
		ttl = *expiresAfter
	}
	session := &Session{
		ID:         fmt.Sprintf("s%d", r.seq),
		UserID:     user.ID,
		Username:   user.Username,
		Email:      user.Email,
		CSRF:       csrf,
		Provider:   provider,
		OAuthToken: oauthToken,
		ExpiresAt:  time.Now().Add(ttl),
		CreatedAt:  time.Now(),
	}
	r.sessions[session.ID] = session
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) GetValidByID(ctx context.Context, id, csrf string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || session.CSRF != csrf || session.Expired() {
		return nil, apperror.NewNotFound("session", id)
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Refresh(ctx context.Context, id, csrf string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || session.CSRF != csrf || session.Expired() {
		return nil, apperror.NewNotFound("session", id)
	}
	session.ExpiresAt = time.Now().Add(30 * time.Minute)
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Expire(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, apperror.NewNotFound("session", id)
	}
	session.ExpiresAt = time.Now()
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Purge(ctx context.Context, userID, skip string) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged []Session
	for _, session := range r.sessions {
		if session.UserID == userID && session.ID != skip && !session.Expired() {
			session.ExpiresAt = time.Now()
			purged = append(purged, *session)
		}
	}
	return purged, nil
}

func (r *fakeSessionRepo) live(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, session := range r.sessions {
		if session.UserID == userID && !session.Expired() {
			n++
		}
	}
	return n
}

type fakeOAuthRepo struct {
	mu   sync.Mutex
	seq  int
	meta map[string]*OAuthMeta
}

func newFakeOAuthRepo() *fakeOAuthRepo {
	return &fakeOAuthRepo{meta: make(map[string]*OAuthMeta)}
}

func oauthKey(provider OAuthProvider, accountID string) string {
	return string(provider) + ":" + accountID
}

func (r *fakeOAuthRepo) Create(ctx context.Context, userID, accountID string, provider OAuthProvider, accessToken string, refreshToken *string, expiresAt *time.Time) (*OAuthMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := oauthKey(provider, accountID)
	if _, ok := r.meta[key]; ok {
		return nil, apperror.NewConflict("provider account already bound")
	}
	r.seq++
	m := &OAuthMeta{
		ID:           fmt.Sprintf("o%d", r.seq),
		UserID:       userID,
		AccountID:    accountID,
		Provider:     provider,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.meta[key] = m
	copied := *m
	return &copied, nil
}

func (r *fakeOAuthRepo) GetByAccountID(ctx context.Context, provider OAuthProvider, accountID string) (*OAuthMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meta[oauthKey(provider, accountID)]
	if !ok {
		return nil, apperror.NewNotFound("oauth", accountID)
	}
	copied := *m
	return &copied, nil
}

func (r *fakeOAuthRepo) UpdateTokens(ctx context.Context, userID string, provider OAuthProvider, accessToken string, refreshToken *string, expiresAt *time.Time) (*OAuthMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.meta {
		if m.UserID == userID && m.Provider == provider {
			m.AccessToken = accessToken
			m.RefreshToken = refreshToken
			m.ExpiresAt = expiresAt
			m.UpdatedAt = time.Now()
			copied := *m
			return &copied, nil
		}
	}
	return nil, apperror.NewNotFound("oauth", userID)
}

func (r *fakeOAuthRepo) Revoke(ctx context.Context, userID string, provider OAuthProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.meta {
		if m.UserID == userID && m.Provider == provider {
			m.Revoked = true
			return nil
		}
	}
	return apperror.NewNotFound("oauth", userID)
}

type fakeEmail struct {
	mu            sync.Mutex
	verifications []string
	resets        []string
	freezes       []string
}

func (f *fakeEmail) SendVerification(ctx context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifications = append(f.verifications, token)
	return nil
}

func (f *fakeEmail) SendPasswordReset(ctx context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, token)
	return nil
}

func (f *fakeEmail) SendFreezeNotice(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freezes = append(f.freezes, email)
	return nil
}

type serviceFixture struct {
	service  *Service
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	oauth    *fakeOAuthRepo
	email    *fakeEmail
	cache    *Cache
	redis    *miniredis.Miniredis
}

func newServiceFixture(t *testing.T, cfg ServiceConfig) *serviceFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	authCache, err := NewCache(redis.NewWithClient(client), DefaultCacheConfig())
	require.NoError(t, err)

	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	oauth := newFakeOAuthRepo()
	email := &fakeEmail{}

	service, err := NewBuilder().
		WithUsers(users).
		WithSessions(sessions).
		WithOAuth(oauth).
		WithCache(authCache).
		WithScope(atomic.NewScope()).
		WithJWT(NewJWTService(DefaultJWTConfig("test-secret"))).
		WithEmail(email).
		WithConfig(cfg).
		Build()
	require.NoError(t, err)

	return &serviceFixture{
		service:  service,
		users:    users,
		sessions: sessions,
		oauth:    oauth,
		email:    email,
		cache:    authCache,
		redis:    mr,
	}
}

func (f *serviceFixture) register(t *testing.T, email, password string) *User {
	t.Helper()
	user, err := f.service.Register(context.Background(), RegisterRequest{
		Email:    email,
		Username: "tester",
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func TestService_Register(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")
	assert.NotEmpty(t, user.ID)
	assert.Len(t, f.email.verifications, 1, "verification email should go out")

	_, err := f.service.Register(ctx, RegisterRequest{
		Email: "a@b.com", Username: "tester", Password: "password123",
	})
	assert.True(t, apperror.IsConflict(err), "duplicate email should conflict")

	_, err = f.service.Register(ctx, RegisterRequest{
		Email: "c@d.com", Username: "tester", Password: "short",
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestService_VerifyRegistration(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")
	token := f.email.verifications[0]

	verified, err := f.service.VerifyRegistration(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)
	assert.NotNil(t, verified.VerifiedAt)

	_, err = f.service.VerifyRegistration(ctx, token)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized), "token is single use")
}

func TestService_LoginSuccess(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")

	result, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)
	assert.False(t, result.OTPRequired)
	require.NotNil(t, result.Tokens)
	assert.Equal(t, "Bearer", result.Tokens.TokenType)
	assert.NotEmpty(t, result.Tokens.CSRF)

	cached, err := f.cache.GetSession(ctx, result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, cached.UserID)

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestService_LoginWrongPassword(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")

	_, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "wrong"})
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))

	n, err := f.cache.GetLoginAttempts(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Unknown emails answer identically.
	_, err = f.service.Login(ctx, Credentials{Email: "nobody@b.com", Password: "wrong"})
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
}

func TestService_LoginThresholdFreezesAccount(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.MaxLoginAttempts = 3
	f := newServiceFixture(t, cfg)
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")

	_, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)
	require.Equal(t, 1, f.sessions.live(user.ID))

	for i := 0; i < 3; i++ {
		_, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "wrong"})
		assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
	}

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Frozen, "crossing the threshold should freeze")
	assert.Equal(t, 0, f.sessions.live(user.ID), "freeze should expire sessions")
	assert.Len(t, f.email.freezes, 1)

	// Even the right password is refused now.
	_, err = f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestService_LoginThrottledBeforeVerify(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.MaxLoginAttempts = 3
	f := newServiceFixture(t, cfg)
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")
	for i := 0; i < 3; i++ {
		_, err := f.cache.CacheLoginAttempt(ctx, user.ID)
		require.NoError(t, err)
	}
	// Keep the account unfrozen so the throttle is what rejects.
	_, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	assert.True(t, apperror.IsCode(err, apperror.CodeTooManyAttempts))
}

func TestService_LoginFailsClosedWhenCacheDown(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	f.register(t, "a@b.com", "password123")
	f.redis.Close()

	_, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	assert.True(t, apperror.IsCode(err, apperror.CodeCacheUnavailable),
		"unreachable cache must not wave logins through")
}

func TestService_OTPFlow(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")

	url, err := f.service.SetupOTP(ctx, user.ID, "password123")
	require.NoError(t, err)
	assert.Contains(t, url, "otpauth://")

	result, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)
	assert.True(t, result.OTPRequired)
	require.NotEmpty(t, result.OTPToken)
	assert.Nil(t, result.Tokens)

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)

	_, err = f.service.VerifyOTP(ctx, result.OTPToken, "000000", false)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))

	attempts, err := f.cache.GetOTPAttempts(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), attempts)

	code, err := totp.GenerateCode(stored.OTPSecret, time.Now())
	require.NoError(t, err)

	verified, err := f.service.VerifyOTP(ctx, result.OTPToken, code, false)
	require.NoError(t, err)
	require.NotNil(t, verified.Tokens)

	_, err = f.cache.GetOTPAttempts(ctx, user.ID)
	assert.True(t, apperror.IsCacheMiss(err), "throttle keys clear on success")
	_, err = f.cache.GetOTPThrottle(ctx, user.ID)
	assert.True(t, apperror.IsCacheMiss(err))

	_, err = f.service.VerifyOTP(ctx, result.OTPToken, code, false)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized), "challenge token is single use")
}

func TestService_OTPCooldown(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.MaxOTPAttempts = 2
	cfg.OTPCooldown = time.Minute
	f := newServiceFixture(t, cfg)
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")
	_, err := f.service.SetupOTP(ctx, user.ID, "password123")
	require.NoError(t, err)

	result, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := f.service.VerifyOTP(ctx, result.OTPToken, "000000", false)
		assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
	}

	_, err = f.service.VerifyOTP(ctx, result.OTPToken, "000000", false)
	assert.True(t, apperror.IsCode(err, apperror.CodeTooManyAttempts),
		"attempt limit inside cool-down should reject before validation")
}

func TestService_Logout(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")

	first, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)
	second, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)
	require.Equal(t, 2, f.sessions.live(user.ID))

	require.NoError(t, f.service.Logout(ctx, first.Session.ID, false))
	assert.Equal(t, 1, f.sessions.live(user.ID))

	_, err = f.cache.GetSession(ctx, first.Session.ID)
	assert.True(t, apperror.IsCacheMiss(err), "cached copy should drop with the session")

	require.NoError(t, f.service.Logout(ctx, second.Session.ID, true))
	assert.Equal(t, 0, f.sessions.live(user.ID))
}

func TestService_ChangePassword(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")

	current, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)
	other, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)

	err = f.service.ChangePassword(ctx, user.ID, current.Session.ID, "wrong", "newpassword1")
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))

	err = f.service.ChangePassword(ctx, user.ID, current.Session.ID, "password123", "newpassword1")
	require.NoError(t, err)

	// The current session survives, the other one is expired.
	assert.Equal(t, 1, f.sessions.live(user.ID))
	_, err = f.sessions.GetValidByID(ctx, other.Session.ID, other.Tokens.CSRF)
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "newpassword1"})
	require.NoError(t, err)
}

func TestService_PasswordReset(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	user := f.register(t, "a@b.com", "password123")
	_, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)

	// Registration set the cool-down; let it lapse.
	f.redis.FastForward(DefaultCacheConfig().EmailThrottleTTL + time.Second)

	require.NoError(t, f.service.ForgotPassword(ctx, "a@b.com"))
	require.Len(t, f.email.resets, 1)

	// Unknown emails answer identically, without a token.
	require.NoError(t, f.service.ForgotPassword(ctx, "nobody@b.com"))
	assert.Len(t, f.email.resets, 1)

	// Cool-down gates a second request.
	err = f.service.ForgotPassword(ctx, "a@b.com")
	assert.True(t, apperror.IsCode(err, apperror.CodeTooManyAttempts))

	require.NoError(t, f.service.ResetPassword(ctx, f.email.resets[0], "newpassword1"))
	assert.Equal(t, 0, f.sessions.live(user.ID), "reset should expire all sessions")

	_, err = f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "newpassword1"})
	require.NoError(t, err)

	err = f.service.ResetPassword(ctx, f.email.resets[0], "anotherpass1")
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized), "reset token is single use")
}

func TestService_GetSessionFallsBackToStore(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	f.register(t, "a@b.com", "password123")
	result, err := f.service.Login(ctx, Credentials{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, f.cache.DeleteSession(ctx, result.Session.ID))

	session, err := f.service.GetSession(ctx, result.Session.ID, result.Tokens.CSRF)
	require.NoError(t, err)
	assert.Equal(t, result.Session.ID, session.ID)

	// The fallback re-primes the cache.
	_, err = f.cache.GetSession(ctx, result.Session.ID)
	require.NoError(t, err)

	_, err = f.service.GetSession(ctx, result.Session.ID, "bad-csrf")
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
}

func TestService_LoginOAuth(t *testing.T) {
	f := newServiceFixture(t, DefaultServiceConfig())
	ctx := context.Background()

	login := OAuthLogin{
		Provider:    ProviderGoogle,
		AccountID:   "goog-1",
		Email:       "a@b.com",
		Username:    "tester",
		AccessToken: "token-1",
	}

	first, err := f.service.LoginOAuth(ctx, login)
	require.NoError(t, err)
	require.NotNil(t, first.Tokens)

	meta, err := f.oauth.GetByAccountID(ctx, ProviderGoogle, "goog-1")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, meta.UserID)

	// Second login reuses the account and rotates the stored token.
	login.AccessToken = "token-2"
	second, err := f.service.LoginOAuth(ctx, login)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	meta, err = f.oauth.GetByAccountID(ctx, ProviderGoogle, "goog-1")
	require.NoError(t, err)
	assert.Equal(t, "token-2", meta.AccessToken)

	require.NoError(t, f.oauth.Revoke(ctx, first.User.ID, ProviderGoogle))
	_, err = f.service.LoginOAuth(ctx, login)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestBuilder_RejectsPartialAssembly(t *testing.T) {
	_, err := NewBuilder().Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user repository")
}
