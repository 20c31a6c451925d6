package auth

import (
	"context"
	"time"
)

// Repositories follow a uniform pattern: context-first CRUD methods
// returning the domain entity or a typed error. "Not found" is always the
// distinguished apperror.CodeNotFound kind, never a nil result, so callers
// can branch without inspecting emptiness. Implementations resolve a plain
// connection or an in-flight transaction from the context, so the same
// contract works inside and outside an atomic scope.

// UserRepository defines account storage operations (document store).
type UserRepository interface {
	// Create creates a new user with the given credentials.
	Create(ctx context.Context, email, username, passwordHash string) (*User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the user's password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) (*User, error)

	// UpdateOTPSecret sets the user's one-time-code secret.
	UpdateOTPSecret(ctx context.Context, id, secret string) (*User, error)

	// VerifyEmail stamps the user's email verification time.
	VerifyEmail(ctx context.Context, id string) (*User, error)

	// UpdateLastLogin stamps the user's last successful login time.
	UpdateLastLogin(ctx context.Context, id string) (*User, error)

	// Freeze suspends the account.
	Freeze(ctx context.Context, id string) (*User, error)
}

// SessionRepository defines session storage operations (relational store).
type SessionRepository interface {
	// Create creates a session for the user. A nil expiresAfter means the
	// session never expires (a "remember me" session).
	Create(ctx context.Context, user *User, csrf string, expiresAfter *time.Duration, oauthToken *string, provider OAuthProvider) (*Session, error)

	// GetValidByID retrieves an unexpired session matching id and CSRF.
	GetValidByID(ctx context.Context, id, csrf string) (*Session, error)

	// Refresh pushes the session's expiry forward.
	Refresh(ctx context.Context, id, csrf string) (*Session, error)

	// Expire sets the session's expiry to now.
	Expire(ctx context.Context, id string) (*Session, error)

	// Purge expires all of the user's sessions, optionally skipping one.
	Purge(ctx context.Context, userID, skip string) ([]Session, error)
}

// OAuthRepository defines provider-account storage operations (relational
// store).
type OAuthRepository interface {
	// Create records a provider account binding with its tokens.
	Create(ctx context.Context, userID, accountID string, provider OAuthProvider, accessToken string, refreshToken *string, expiresAt *time.Time) (*OAuthMeta, error)

	// GetByAccountID retrieves the binding for a provider account.
	GetByAccountID(ctx context.Context, provider OAuthProvider, accountID string) (*OAuthMeta, error)

	// UpdateTokens replaces the stored tokens for the user and provider.
	UpdateTokens(ctx context.Context, userID string, provider OAuthProvider, accessToken string, refreshToken *string, expiresAt *time.Time) (*OAuthMeta, error)

	// Revoke marks the binding revoked.
	Revoke(ctx context.Context, userID string, provider OAuthProvider) error
}
