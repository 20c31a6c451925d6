package context

import (
	"context"
)

// AccountContext contains the authenticated caller's identity, set by the
// session middleware after the session and CSRF token check out.
type AccountContext struct {
	UserID    string
	Email     string
	SessionID string
	CSRF      string
}

type accountContextKey struct{}

// WithAccount adds AccountContext to context.
func WithAccount(ctx context.Context, acc *AccountContext) context.Context {
	return context.WithValue(ctx, accountContextKey{}, acc)
}

// GetAccount returns AccountContext from context.
func GetAccount(ctx context.Context) *AccountContext {
	if v, ok := ctx.Value(accountContextKey{}).(*AccountContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if a := GetAccount(ctx); a != nil {
		return a.UserID
	}
	return ""
}

// GetSessionID returns session ID from context or empty string.
func GetSessionID(ctx context.Context) string {
	if a := GetAccount(ctx); a != nil {
		return a.SessionID
	}
	return ""
}
