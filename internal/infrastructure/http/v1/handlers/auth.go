package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JosipBeDa/alchemy/internal/domain/auth"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/http/v1/dto"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.service.Register(ctx, req.ToAuthRequest())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromUser(user))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Login(ctx, req.ToCredentials())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLoginResult(result))
}

// VerifyOTP handles POST /auth/otp/verify
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.VerifyOTPRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.VerifyOTP(ctx, req.Token, req.Code, req.Remember)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLoginResult(result))
}

// SetupOTP handles POST /auth/otp/setup
func (h *AuthHandler) SetupOTP(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SetupOTPRequest
	if !h.BindJSON(c, &req) {
		return
	}

	url, err := h.service.SetupOTP(ctx, h.GetUserID(c), req.Password)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.SetupOTPResponse{URL: url})
}

// VerifyEmail handles POST /auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.VerifyEmailRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.service.VerifyRegistration(ctx, req.Token)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromUser(user))
}

// ResendVerification handles POST /auth/verify-email/resend
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ResendVerificationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.ResendVerification(ctx, req.Email); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "verification email sent")
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LogoutRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Logout(ctx, h.GetSessionID(c), req.PurgeAll); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// ChangePassword handles POST /auth/password/change
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ChangePasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	err := h.service.ChangePassword(ctx, h.GetUserID(c), h.GetSessionID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "password changed")
}

// ForgotPassword handles POST /auth/password/forgot
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ForgotPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.ForgotPassword(ctx, req.Email); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "reset email sent")
}

// ResetPassword handles POST /auth/password/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ResetPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "password reset")
}
