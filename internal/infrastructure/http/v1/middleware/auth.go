package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	appctx "github.com/JosipBeDa/alchemy/internal/core/context"
	"github.com/JosipBeDa/alchemy/internal/domain/auth"
)

const HeaderCSRF = "X-CSRF-Token"

// TokenValidator interface for access token validation.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.AccountContext, error)
}

// SessionResolver checks that the session a token names is still live.
type SessionResolver interface {
	GetSession(ctx context.Context, sessionID, csrf string) (*auth.Session, error)
}

// Auth validates the bearer token, then the session it names together
// with the CSRF header, and populates the account context. A valid
// signature over a dead session is still a rejection.
func Auth(validator TokenValidator, sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		account, err := validator.ValidateToken(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		csrf := c.GetHeader(HeaderCSRF)
		if csrf == "" {
			abortUnauthorized(c, "missing csrf token")
			return
		}

		session, err := sessions.GetSession(c.Request.Context(), account.SessionID, csrf)
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid session"))
			c.Abort()
			return
		}

		account.CSRF = session.CSRF
		ctx := appctx.WithAccount(c.Request.Context(), account)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", account.UserID)
		c.Set("session_id", account.SessionID)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
