// Package dto provides data transfer objects for HTTP API.
package dto

import (
	"time"

	"github.com/JosipBeDa/alchemy/internal/domain/auth"
)

// --- Request DTOs ---

// RegisterRequest for user registration.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=2"`
	Password string `json:"password" binding:"required,min=8"`
}

// ToAuthRequest converts to domain request.
func (r *RegisterRequest) ToAuthRequest() auth.RegisterRequest {
	return auth.RegisterRequest{
		Email:    r.Email,
		Username: r.Username,
		Password: r.Password,
	}
}

// LoginRequest for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

// ToCredentials converts to domain credentials.
func (r *LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{
		Email:    r.Email,
		Password: r.Password,
		Remember: r.Remember,
	}
}

// VerifyOTPRequest answers a one-time-code challenge.
type VerifyOTPRequest struct {
	Token    string `json:"token" binding:"required"`
	Code     string `json:"code" binding:"required,len=6,numeric"`
	Remember bool   `json:"remember"`
}

// VerifyEmailRequest consumes a registration token.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ResendVerificationRequest re-issues a registration token.
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ChangePasswordRequest for password rotation.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// ForgotPasswordRequest starts the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest consumes a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// SetupOTPRequest enables one-time codes for the account.
type SetupOTPRequest struct {
	Password string `json:"password" binding:"required"`
}

// LogoutRequest optionally expires every session of the account.
type LogoutRequest struct {
	PurgeAll bool `json:"purgeAll"`
}

// --- Response DTOs ---

// TokenResponse represents the issued session credentials.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	CSRF        string    `json:"csrf"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// LoginResponse is either tokens or a one-time-code challenge.
type LoginResponse struct {
	OTPRequired bool           `json:"otpRequired"`
	OTPToken    string         `json:"otpToken,omitempty"`
	Tokens      *TokenResponse `json:"tokens,omitempty"`
	User        *UserResponse  `json:"user,omitempty"`
}

// UserResponse represents an account in API responses.
type UserResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Username   string     `json:"username"`
	Frozen     bool       `json:"frozen"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// SetupOTPResponse carries the provisioning URI for authenticator apps.
type SetupOTPResponse struct {
	URL string `json:"url"`
}

// FromUser converts a domain user.
func FromUser(user *auth.User) *UserResponse {
	return &UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		Frozen:     user.Frozen,
		VerifiedAt: user.VerifiedAt,
		CreatedAt:  user.CreatedAt,
	}
}

// FromLoginResult converts a domain login result.
func FromLoginResult(result *auth.LoginResult) *LoginResponse {
	resp := &LoginResponse{
		OTPRequired: result.OTPRequired,
		OTPToken:    result.OTPToken,
	}
	if result.Tokens != nil {
		resp.Tokens = &TokenResponse{
			AccessToken: result.Tokens.AccessToken,
			CSRF:        result.Tokens.CSRF,
			TokenType:   result.Tokens.TokenType,
			ExpiresAt:   result.Tokens.ExpiresAt,
		}
	}
	if result.User != nil {
		resp.User = FromUser(result.User)
	}
	return resp
}
