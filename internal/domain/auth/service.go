package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/internal/core/atomic"
	"github.com/JosipBeDa/alchemy/internal/core/cache"
	"github.com/JosipBeDa/alchemy/pkg/logger"
)

// ServiceConfig holds auth service configuration. Thresholds and
// cool-downs are policy: the cache layer only stores counts and
// timestamps.
type ServiceConfig struct {
	MaxLoginAttempts  int
	MaxOTPAttempts    int
	OTPCooldown       time.Duration
	PasswordMinLength int
	SessionTTL        time.Duration
	Issuer            string
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:  5,
		MaxOTPAttempts:    3,
		OTPCooldown:       30 * time.Second,
		PasswordMinLength: 8,
		SessionTTL:        30 * time.Minute,
		Issuer:            "alchemy",
	}
}

// EmailSender delivers account emails. Delivery is external glue; the
// service only decides when a message goes out.
type EmailSender interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
	SendFreezeNotice(ctx context.Context, email string) error
}

// Credentials carry a native login request.
type Credentials struct {
	Email    string
	Password string
	Remember bool
}

// RegisterRequest carries a registration request.
type RegisterRequest struct {
	Email    string
	Username string
	Password string
}

// OAuthLogin carries a provider-resolved login. Exchanging the
// authorization code with the provider happens at the boundary; the
// service receives the resolved account.
type OAuthLogin struct {
	Provider     OAuthProvider
	AccountID    string
	Email        string
	Username     string
	AccessToken  string
	RefreshToken *string
	TokenExpiry  *time.Time
}

// TokenPair is the issued credential set for an established session.
type TokenPair struct {
	AccessToken string    `json:"access_token"`
	CSRF        string    `json:"csrf"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
}

// LoginResult is either an established session or a one-time-code
// challenge the caller must answer via VerifyOTP.
type LoginResult struct {
	OTPRequired bool       `json:"otp_required"`
	OTPToken    string     `json:"otp_token,omitempty"`
	Tokens      *TokenPair `json:"tokens,omitempty"`
	Session     *Session   `json:"-"`
	User        *User      `json:"user,omitempty"`
}

// Service composes the repositories, the cache and the atomic scope into
// the authentication flows. Durable writes that must land together run
// inside the scope; throttle bookkeeping is advisory and runs outside it.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	oauth    OAuthRepository
	cache    *Cache
	scope    *atomic.Scope
	jwt      *JWTService
	email    EmailSender
	config   ServiceConfig
}

// Register registers a new user and emails a verification token.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if req.Email == "" {
		return nil, apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if req.Username == "" {
		return nil, apperror.NewValidation("username is required").WithDetail("field", "username")
	}
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperror.NewConflict("email already registered").WithDetail("email", req.Email)
	} else if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("check email exists: %w", err)
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var user *User
	err = s.scope.Run(ctx, func(ctx context.Context) error {
		user, err = s.users.Create(ctx, req.Email, req.Username, passwordHash)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		// Registration stands; the token can be resent.
		logger.Warn(ctx, "failed to send verification email",
			"user_id", user.ID, "error", err)
	}

	logger.Info(ctx, "user registered",
		"user_id", user.ID,
		"email", user.Email)

	return user, nil
}

// VerifyRegistration consumes a verification token and stamps the email
// verified.
func (s *Service) VerifyRegistration(ctx context.Context, token string) (*User, error) {
	userID, err := s.cache.GetToken(ctx, cache.RegistrationToken, token)
	if apperror.IsCacheMiss(err) {
		return nil, apperror.NewUnauthorized("invalid verification token")
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.VerifyEmail(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}

	if err := s.cache.DeleteToken(ctx, cache.RegistrationToken, token); err != nil {
		logger.Warn(ctx, "failed to consume verification token", "error", err)
	}

	logger.Info(ctx, "email verified", "user_id", user.ID)
	return user, nil
}

// ResendVerification re-issues the verification token, subject to the
// email cool-down.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// No account enumeration through the resend endpoint.
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if user.VerifiedAt != nil {
		return apperror.NewConflict("email already verified")
	}
	return s.sendVerification(ctx, user)
}

func (s *Service) sendVerification(ctx context.Context, user *User) error {
	throttled, err := s.cache.EmailThrottled(ctx, user.ID)
	if err != nil {
		return err
	}
	if throttled {
		return apperror.NewTooManyAttempts()
	}

	token, err := generateRandomToken(32)
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}
	if err := s.cache.SetToken(ctx, cache.RegistrationToken, token, user.ID); err != nil {
		return err
	}
	if err := s.cache.SetEmailThrottle(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to set email throttle", "user_id", user.ID, "error", err)
	}
	return s.email.SendVerification(ctx, user.Email, token)
}

// Login authenticates a user with native credentials. When the account
// has a one-time-code secret configured, a successful password check
// yields a challenge token instead of a session.
//
// Throttle reads fail closed: an unreachable cache rejects the login
// rather than waving it through unthrottled.
func (s *Service) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}

	if err := user.CanLogin(); err != nil {
		return nil, err
	}

	attempts, err := s.cache.GetLoginAttempts(ctx, user.ID)
	if err != nil && !apperror.IsCacheMiss(err) {
		return nil, err
	}
	if attempts >= int64(s.config.MaxLoginAttempts) {
		return nil, apperror.NewTooManyAttempts()
	}

	if !verifyPassword(user.PasswordHash, creds.Password) {
		return nil, s.recordFailedLogin(ctx, user)
	}

	if user.OTPEnabled() {
		return s.issueOTPChallenge(ctx, user)
	}

	return s.establishSession(ctx, user, AuthNative, "", nil, creds.Remember)
}

// recordFailedLogin bumps the attempt counter; crossing the threshold
// freezes the account and expires its sessions. The caller always gets
// the same "invalid credentials" answer.
func (s *Service) recordFailedLogin(ctx context.Context, user *User) error {
	count, err := s.cache.CacheLoginAttempt(ctx, user.ID)
	if err != nil {
		logger.Error(ctx, "failed to record login attempt",
			"user_id", user.ID, "error", err)
		return apperror.NewUnauthorized("invalid credentials")
	}

	if count >= int64(s.config.MaxLoginAttempts) {
		if err := s.freezeAccount(ctx, user); err != nil {
			logger.Error(ctx, "failed to freeze account",
				"user_id", user.ID, "error", err)
		}
	}

	return apperror.NewUnauthorized("invalid credentials")
}

func (s *Service) freezeAccount(ctx context.Context, user *User) error {
	err := s.scope.Run(ctx, func(ctx context.Context) error {
		if _, err := s.users.Freeze(ctx, user.ID); err != nil {
			return fmt.Errorf("freeze user: %w", err)
		}
		purged, err := s.sessions.Purge(ctx, user.ID, "")
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
		s.dropCachedSessions(ctx, purged)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Warn(ctx, "account frozen after repeated failed logins",
		"user_id", user.ID)

	if err := s.email.SendFreezeNotice(ctx, user.Email); err != nil {
		logger.Warn(ctx, "failed to send freeze notice",
			"user_id", user.ID, "error", err)
	}
	return nil
}

// issueOTPChallenge stores a short-lived token mapping to the user and
// returns it; the token is the only handle VerifyOTP accepts.
func (s *Service) issueOTPChallenge(ctx context.Context, user *User) (*LoginResult, error) {
	token, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate challenge token: %w", err)
	}
	if err := s.cache.SetToken(ctx, cache.OTPToken, token, user.ID); err != nil {
		return nil, err
	}

	logger.Info(ctx, "one-time-code challenge issued", "user_id", user.ID)
	return &LoginResult{OTPRequired: true, OTPToken: token}, nil
}

// VerifyOTP answers a challenge issued by Login. Every attempt,
// successful or not, refreshes the attempt counter and the last-attempt
// timestamp together; both clear together on success.
func (s *Service) VerifyOTP(ctx context.Context, token, code string, remember bool) (*LoginResult, error) {
	userID, err := s.cache.GetToken(ctx, cache.OTPToken, token)
	if apperror.IsCacheMiss(err) {
		return nil, apperror.NewUnauthorized("invalid or expired challenge")
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.OTPEnabled() {
		return nil, apperror.NewUnauthorized("invalid or expired challenge")
	}

	attempts, err := s.cache.GetOTPAttempts(ctx, user.ID)
	if err != nil && !apperror.IsCacheMiss(err) {
		return nil, err
	}
	if attempts >= int64(s.config.MaxOTPAttempts) {
		last, err := s.cache.GetOTPThrottle(ctx, user.ID)
		if err != nil && !apperror.IsCacheMiss(err) {
			return nil, err
		}
		if err == nil && time.Since(last) < s.config.OTPCooldown {
			return nil, apperror.NewTooManyAttempts()
		}
	}

	if _, err := s.cache.CacheOTPAttempt(ctx, user.ID); err != nil {
		logger.Error(ctx, "failed to record verification attempt",
			"user_id", user.ID, "error", err)
	}

	if !validateOTP(code, user.OTPSecret) {
		return nil, apperror.NewUnauthorized("invalid code")
	}

	if err := s.cache.DeleteOTPThrottle(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to clear verification throttle",
			"user_id", user.ID, "error", err)
	}
	if err := s.cache.DeleteToken(ctx, cache.OTPToken, token); err != nil {
		logger.Warn(ctx, "failed to consume challenge token", "error", err)
	}

	return s.establishSession(ctx, user, AuthNative, "", nil, remember)
}

// LoginOAuth authenticates via a provider-resolved account, creating the
// local user and binding on first sight.
func (s *Service) LoginOAuth(ctx context.Context, login OAuthLogin) (*LoginResult, error) {
	var user *User

	meta, err := s.oauth.GetByAccountID(ctx, login.Provider, login.AccountID)
	switch {
	case err == nil:
		if meta.Revoked {
			return nil, apperror.NewForbidden("provider access revoked")
		}
		user, err = s.users.GetByID(ctx, meta.UserID)
		if err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		if err := user.CanLogin(); err != nil {
			return nil, err
		}
		err = s.scope.Run(ctx, func(ctx context.Context) error {
			_, err := s.oauth.UpdateTokens(ctx, user.ID, login.Provider,
				login.AccessToken, login.RefreshToken, login.TokenExpiry)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("update provider tokens: %w", err)
		}

	case apperror.IsNotFound(err):
		// First login through this provider account: password is a
		// random placeholder, the account authenticates via the provider.
		placeholder, err := generateRandomToken(32)
		if err != nil {
			return nil, err
		}
		passwordHash, err := hashPassword(placeholder)
		if err != nil {
			return nil, err
		}
		err = s.scope.Run(ctx, func(ctx context.Context) error {
			user, err = s.users.Create(ctx, login.Email, login.Username, passwordHash)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			_, err = s.oauth.Create(ctx, user.ID, login.AccountID, login.Provider,
				login.AccessToken, login.RefreshToken, login.TokenExpiry)
			if err != nil {
				return fmt.Errorf("create provider binding: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "user registered via provider",
			"user_id", user.ID, "provider", login.Provider)

	default:
		return nil, err
	}

	return s.establishSession(ctx, user, AuthOAuth, login.Provider, &login.AccessToken, false)
}

// establishSession creates the durable session and stamps the login in
// one atomic scope, then clears the attempt counter, caches a session
// copy and signs the access token.
func (s *Service) establishSession(
	ctx context.Context,
	user *User,
	authType AuthType,
	provider OAuthProvider,
	oauthToken *string,
	remember bool,
) (*LoginResult, error) {
	csrf, err := generateRandomToken(16)
	if err != nil {
		return nil, fmt.Errorf("generate csrf token: %w", err)
	}

	var expiresAfter *time.Duration
	if !remember {
		ttl := s.config.SessionTTL
		expiresAfter = &ttl
	}

	var session *Session
	err = s.scope.Run(ctx, func(ctx context.Context) error {
		session, err = s.sessions.Create(ctx, user, csrf, expiresAfter, oauthToken, provider)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		session.AuthType = authType
		if _, err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
			return fmt.Errorf("stamp last login: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.DeleteLoginAttempts(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to clear login attempts",
			"user_id", user.ID, "error", err)
	}
	if err := s.cache.SetSession(ctx, session.ID, session); err != nil {
		logger.Warn(ctx, "failed to cache session",
			"session_id", session.ID, "error", err)
	}

	accessToken, expiresAt, err := s.jwt.GenerateAccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	logger.Info(ctx, "user logged in",
		"user_id", user.ID,
		"session_id", session.ID,
		"auth_type", authType)

	return &LoginResult{
		Tokens: &TokenPair{
			AccessToken: accessToken,
			CSRF:        csrf,
			ExpiresAt:   expiresAt,
			TokenType:   "Bearer",
		},
		Session: session,
		User:    user,
	}, nil
}

// GetSession resolves a live session by id and CSRF, preferring the
// cached copy. A cache miss or an unreachable cache falls through to the
// durable store.
func (s *Service) GetSession(ctx context.Context, sessionID, csrf string) (*Session, error) {
	cached, err := s.cache.GetSession(ctx, sessionID)
	if err == nil && cached.CSRF == csrf && !cached.Expired() {
		return cached, nil
	}
	if err != nil && !apperror.IsCacheMiss(err) {
		logger.Warn(ctx, "session cache read failed",
			"session_id", sessionID, "error", err)
	}

	session, err := s.sessions.GetValidByID(ctx, sessionID, csrf)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid session")
		}
		return nil, err
	}

	if err := s.cache.SetSession(ctx, session.ID, session); err != nil {
		logger.Warn(ctx, "failed to cache session",
			"session_id", session.ID, "error", err)
	}
	return session, nil
}

// RefreshSession pushes a session's expiry forward and refreshes the
// cached copy.
func (s *Service) RefreshSession(ctx context.Context, sessionID, csrf string) (*Session, error) {
	session, err := s.sessions.Refresh(ctx, sessionID, csrf)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid session")
		}
		return nil, err
	}
	if err := s.cache.SetSession(ctx, session.ID, session); err != nil {
		logger.Warn(ctx, "failed to cache session",
			"session_id", session.ID, "error", err)
	}
	return session, nil
}

// Logout expires the session and drops its cached copy. With purge set,
// every session of the owning user is expired.
func (s *Service) Logout(ctx context.Context, sessionID string, purge bool) error {
	session, err := s.sessions.Expire(ctx, sessionID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewUnauthorized("invalid session")
		}
		return err
	}
	s.dropCachedSessions(ctx, []Session{*session})

	if purge {
		purged, err := s.sessions.Purge(ctx, session.UserID, session.ID)
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
		s.dropCachedSessions(ctx, purged)
	}

	logger.Info(ctx, "user logged out",
		"user_id", session.UserID,
		"session_id", session.ID,
		"purge", purge)
	return nil
}

// ChangePassword rotates the password and expires every other session in
// one scope.
func (s *Service) ChangePassword(ctx context.Context, userID, currentSessionID, oldPassword, newPassword string) error {
	if len(newPassword) < s.config.PasswordMinLength {
		return apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !verifyPassword(user.PasswordHash, oldPassword) {
		return apperror.NewUnauthorized("invalid credentials")
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	var purged []Session
	err = s.scope.Run(ctx, func(ctx context.Context) error {
		if _, err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		purged, err = s.sessions.Purge(ctx, userID, currentSessionID)
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.dropCachedSessions(ctx, purged)
	logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// ForgotPassword issues a reset token, subject to the email cool-down.
// Unknown emails answer identically to known ones.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}

	throttled, err := s.cache.EmailThrottled(ctx, user.ID)
	if err != nil {
		return err
	}
	if throttled {
		return apperror.NewTooManyAttempts()
	}

	token, err := generateRandomToken(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.cache.SetToken(ctx, cache.PasswordToken, token, user.ID); err != nil {
		return err
	}
	if err := s.cache.SetEmailThrottle(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to set email throttle", "user_id", user.ID, "error", err)
	}
	return s.email.SendPasswordReset(ctx, user.Email, token)
}

// ResetPassword consumes a reset token, replaces the password and expires
// every session.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < s.config.PasswordMinLength {
		return apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	userID, err := s.cache.GetToken(ctx, cache.PasswordToken, token)
	if apperror.IsCacheMiss(err) {
		return apperror.NewUnauthorized("invalid reset token")
	}
	if err != nil {
		return err
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	var purged []Session
	err = s.scope.Run(ctx, func(ctx context.Context) error {
		if _, err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		purged, err = s.sessions.Purge(ctx, userID, "")
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.dropCachedSessions(ctx, purged)
	if err := s.cache.DeleteToken(ctx, cache.PasswordToken, token); err != nil {
		logger.Warn(ctx, "failed to consume reset token", "error", err)
	}
	if err := s.cache.DeleteLoginAttempts(ctx, userID); err != nil {
		logger.Warn(ctx, "failed to clear login attempts",
			"user_id", userID, "error", err)
	}

	logger.Info(ctx, "password reset", "user_id", userID)
	return nil
}

// SetupOTP generates a one-time-code secret for the account and returns
// the provisioning URI for authenticator apps.
func (s *Service) SetupOTP(ctx context.Context, userID, password string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !verifyPassword(user.PasswordHash, password) {
		return "", apperror.NewUnauthorized("invalid credentials")
	}

	secret, url, err := generateOTPSecret(s.config.Issuer, user.Email)
	if err != nil {
		return "", err
	}
	if _, err := s.users.UpdateOTPSecret(ctx, userID, secret); err != nil {
		return "", fmt.Errorf("store one-time-code secret: %w", err)
	}

	logger.Info(ctx, "one-time-code secret configured", "user_id", userID)
	return url, nil
}

// dropCachedSessions removes cached copies of the given sessions.
// Failures are logged; the cached copy expires on its own TTL anyway.
func (s *Service) dropCachedSessions(ctx context.Context, sessions []Session) {
	for _, session := range sessions {
		if err := s.cache.DeleteSession(ctx, session.ID); err != nil {
			logger.Warn(ctx, "failed to drop cached session",
				"session_id", session.ID, "error", err)
		}
	}
}
