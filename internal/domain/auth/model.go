// Package auth provides authentication domain logic: users, sessions,
// OAuth metadata, credential verification and attempt throttling.
package auth

import (
	"time"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
)

// AuthType records how a session was established.
type AuthType string

const (
	AuthNative AuthType = "native"
	AuthOAuth  AuthType = "oauth"
)

// OAuthProvider identifies an external identity provider.
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "google"
	ProviderGithub OAuthProvider = "github"
)

// User is the account entity, stored in the document store.
type User struct {
	ID           string     `bson:"_id" json:"id"`
	Email        string     `bson:"email" json:"email"`
	Username     string     `bson:"username" json:"username"`
	PasswordHash string     `bson:"password_hash" json:"-"`
	OTPSecret    string     `bson:"otp_secret,omitempty" json:"-"`
	Frozen       bool       `bson:"frozen" json:"frozen"`
	VerifiedAt   *time.Time `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
	LastLoginAt  *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}

// OTPEnabled reports whether the user has set up a one-time-code secret.
func (u *User) OTPEnabled() bool {
	return u.OTPSecret != ""
}

// CanLogin returns an error when the account is not in a loggable state.
func (u *User) CanLogin() error {
	if u.Frozen {
		return apperror.NewForbidden("account suspended")
	}
	return nil
}

// Session is a server-side login session, stored in the relational store
// and cached. A session is valid while ExpiresAt is in the future and the
// caller presents the matching CSRF token.
type Session struct {
	ID         string        `json:"id" db:"id"`
	UserID     string        `json:"user_id" db:"user_id"`
	Username   string        `json:"username" db:"username"`
	Email      string        `json:"email" db:"email"`
	CSRF       string        `json:"-" db:"csrf"`
	AuthType   AuthType      `json:"auth_type" db:"auth_type"`
	Provider   OAuthProvider `json:"provider,omitempty" db:"provider"`
	OAuthToken *string       `json:"-" db:"oauth_token"`
	ExpiresAt  time.Time     `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.After(time.Now())
}

// OAuthMeta ties a user to an external provider account and its tokens,
// stored in the relational store.
type OAuthMeta struct {
	ID           string        `json:"id" db:"id"`
	UserID       string        `json:"user_id" db:"user_id"`
	AccountID    string        `json:"account_id" db:"account_id"`
	Provider     OAuthProvider `json:"provider" db:"provider"`
	AccessToken  string        `json:"-" db:"access_token"`
	RefreshToken *string       `json:"-" db:"refresh_token"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	Revoked      bool          `json:"revoked" db:"revoked"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}
