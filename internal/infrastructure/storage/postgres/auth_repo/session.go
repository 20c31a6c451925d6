// Package auth_repo provides PostgreSQL implementations of the auth
// repositories. Queries run against the bound transaction when the context
// carries one, otherwise against the pool.
package auth_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/internal/core/id"
	"github.com/JosipBeDa/alchemy/internal/domain/auth"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/storage/postgres"
)

// permanentSessionTTL stands in for "never expires" so the expires_at
// column stays non-null and comparable.
const permanentSessionTTL = 100 * 365 * 24 * time.Hour

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const sessionColumns = `id, user_id, username, email, csrf, auth_type, provider, oauth_token, expires_at, created_at`

// SessionRepo implements auth.SessionRepository.
type SessionRepo struct {
	db postgres.Querier
}

// NewSessionRepo creates a new session repository over the shared pool.
func NewSessionRepo(db postgres.Querier) *SessionRepo {
	return &SessionRepo{db: db}
}

var _ auth.SessionRepository = (*SessionRepo)(nil)

func (r *SessionRepo) querier(ctx context.Context) postgres.Querier {
	return postgres.QuerierFrom(ctx, r.db)
}

// Create creates a session for the user. A nil expiresAfter produces a
// session that effectively never expires.
func (r *SessionRepo) Create(ctx context.Context, user *auth.User, csrf string, expiresAfter *time.Duration, oauthToken *string, provider auth.OAuthProvider) (*auth.Session, error) {
	q := r.querier(ctx)

	ttl := permanentSessionTTL
	if expiresAfter != nil {
		ttl = *expiresAfter
	}
	authType := auth.AuthNative
	if provider != "" {
		authType = auth.AuthOAuth
	}

	query := `
		INSERT INTO sessions (id, user_id, username, email, csrf, auth_type, provider, oauth_token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + sessionColumns

	var session auth.Session
	err := pgxscan.Get(ctx, q, &session, query,
		id.New().String(), user.ID, user.Username, user.Email,
		csrf, authType, provider, oauthToken, time.Now().Add(ttl),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return &session, nil
}

// GetValidByID retrieves an unexpired session matching id and CSRF.
func (r *SessionRepo) GetValidByID(ctx context.Context, sessionID, csrf string) (*auth.Session, error) {
	q := r.querier(ctx)

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1 AND csrf = $2 AND expires_at > NOW()
	`

	var session auth.Session
	err := pgxscan.Get(ctx, q, &session, query, sessionID, csrf)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	return &session, nil
}

// Refresh pushes the session's expiry 30 minutes forward.
func (r *SessionRepo) Refresh(ctx context.Context, sessionID, csrf string) (*auth.Session, error) {
	q := r.querier(ctx)

	query := `
		UPDATE sessions
		SET expires_at = NOW() + INTERVAL '30 minutes'
		WHERE id = $1 AND csrf = $2 AND expires_at > NOW()
		RETURNING ` + sessionColumns

	var session auth.Session
	err := pgxscan.Get(ctx, q, &session, query, sessionID, csrf)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	return &session, nil
}

// Expire sets the session's expiry to now.
func (r *SessionRepo) Expire(ctx context.Context, sessionID string) (*auth.Session, error) {
	q := r.querier(ctx)

	query := `
		UPDATE sessions
		SET expires_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns

	var session auth.Session
	err := pgxscan.Get(ctx, q, &session, query, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("expire session: %w", err)
	}

	return &session, nil
}

// Purge expires all unexpired sessions of the user, optionally skipping
// one session ID (the caller's own).
func (r *SessionRepo) Purge(ctx context.Context, userID, skip string) ([]auth.Session, error) {
	q := r.querier(ctx)

	builder := psql.Update("sessions").
		Set("expires_at", sq.Expr("NOW()")).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Expr("expires_at >= NOW()")).
		Suffix("RETURNING " + sessionColumns)

	if skip != "" {
		builder = builder.Where(sq.NotEq{"id": skip})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build purge query: %w", err)
	}

	var sessions []auth.Session
	if err := pgxscan.Select(ctx, q, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("purge sessions: %w", err)
	}

	return sessions, nil
}
