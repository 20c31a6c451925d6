package auth_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/internal/core/id"
	"github.com/JosipBeDa/alchemy/internal/domain/auth"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/storage/postgres"
)

const uniqueViolation = "23505"

const oauthColumns = `id, user_id, account_id, provider, access_token, refresh_token, expires_at, revoked, created_at, updated_at`

// OAuthRepo implements auth.OAuthRepository.
type OAuthRepo struct {
	db postgres.Querier
}

// NewOAuthRepo creates a new OAuth metadata repository over the shared pool.
func NewOAuthRepo(db postgres.Querier) *OAuthRepo {
	return &OAuthRepo{db: db}
}

var _ auth.OAuthRepository = (*OAuthRepo)(nil)

func (r *OAuthRepo) querier(ctx context.Context) postgres.Querier {
	return postgres.QuerierFrom(ctx, r.db)
}

// Create records a provider account binding with its tokens.
func (r *OAuthRepo) Create(ctx context.Context, userID, accountID string, provider auth.OAuthProvider, accessToken string, refreshToken *string, expiresAt *time.Time) (*auth.OAuthMeta, error) {
	q := r.querier(ctx)

	query := `
		INSERT INTO oauth_meta (id, user_id, account_id, provider, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + oauthColumns

	var meta auth.OAuthMeta
	err := pgxscan.Get(ctx, q, &meta, query,
		id.New().String(), userID, accountID, provider, accessToken, refreshToken, expiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperror.NewConflict("provider account already linked").
				WithDetail("provider", provider).
				WithCause(err)
		}
		return nil, fmt.Errorf("insert oauth meta: %w", err)
	}

	return &meta, nil
}

// GetByAccountID retrieves the binding for a provider account.
func (r *OAuthRepo) GetByAccountID(ctx context.Context, provider auth.OAuthProvider, accountID string) (*auth.OAuthMeta, error) {
	q := r.querier(ctx)

	query := `
		SELECT ` + oauthColumns + `
		FROM oauth_meta
		WHERE provider = $1 AND account_id = $2
	`

	var meta auth.OAuthMeta
	err := pgxscan.Get(ctx, q, &meta, query, provider, accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("oauth account", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("query oauth meta: %w", err)
	}

	return &meta, nil
}

// UpdateTokens replaces the stored tokens for the user and provider.
func (r *OAuthRepo) UpdateTokens(ctx context.Context, userID string, provider auth.OAuthProvider, accessToken string, refreshToken *string, expiresAt *time.Time) (*auth.OAuthMeta, error) {
	q := r.querier(ctx)

	query := `
		UPDATE oauth_meta
		SET access_token = $1, refresh_token = $2, expires_at = $3, updated_at = NOW()
		WHERE user_id = $4 AND provider = $5 AND revoked = FALSE
		RETURNING ` + oauthColumns

	var meta auth.OAuthMeta
	err := pgxscan.Get(ctx, q, &meta, query, accessToken, refreshToken, expiresAt, userID, provider)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("oauth account", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("update oauth tokens: %w", err)
	}

	return &meta, nil
}

// Revoke marks the binding revoked.
func (r *OAuthRepo) Revoke(ctx context.Context, userID string, provider auth.OAuthProvider) error {
	q := r.querier(ctx)

	tag, err := q.Exec(ctx,
		`UPDATE oauth_meta SET revoked = TRUE, updated_at = NOW() WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("revoke oauth meta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("oauth account", userID)
	}

	return nil
}
