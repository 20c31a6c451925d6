package auth

import (
	"fmt"

	"github.com/JosipBeDa/alchemy/internal/core/atomic"
)

// Builder assembles a Service from its parts. Composition is explicit:
// each repository, the cache, the scope and the token signer are bound by
// name, and Build rejects a partial assembly instead of deferring the nil
// dereference to the first request.
type Builder struct {
	users    UserRepository
	sessions SessionRepository
	oauth    OAuthRepository
	cache    *Cache
	scope    *atomic.Scope
	jwt      *JWTService
	email    EmailSender
	config   ServiceConfig
}

// NewBuilder creates a builder with default configuration.
func NewBuilder() *Builder {
	return &Builder{config: DefaultServiceConfig()}
}

// WithUsers binds the user repository.
func (b *Builder) WithUsers(repo UserRepository) *Builder {
	b.users = repo
	return b
}

// WithSessions binds the session repository.
func (b *Builder) WithSessions(repo SessionRepository) *Builder {
	b.sessions = repo
	return b
}

// WithOAuth binds the provider-account repository.
func (b *Builder) WithOAuth(repo OAuthRepository) *Builder {
	b.oauth = repo
	return b
}

// WithCache binds the auth cache.
func (b *Builder) WithCache(cache *Cache) *Builder {
	b.cache = cache
	return b
}

// WithScope binds the atomic scope the durable writes run in.
func (b *Builder) WithScope(scope *atomic.Scope) *Builder {
	b.scope = scope
	return b
}

// WithJWT binds the token signer.
func (b *Builder) WithJWT(jwt *JWTService) *Builder {
	b.jwt = jwt
	return b
}

// WithEmail binds the email sender.
func (b *Builder) WithEmail(email EmailSender) *Builder {
	b.email = email
	return b
}

// WithConfig replaces the service configuration.
func (b *Builder) WithConfig(config ServiceConfig) *Builder {
	b.config = config
	return b
}

// Build validates the assembly and returns the service.
func (b *Builder) Build() (*Service, error) {
	switch {
	case b.users == nil:
		return nil, fmt.Errorf("auth service: user repository is required")
	case b.sessions == nil:
		return nil, fmt.Errorf("auth service: session repository is required")
	case b.oauth == nil:
		return nil, fmt.Errorf("auth service: oauth repository is required")
	case b.cache == nil:
		return nil, fmt.Errorf("auth service: cache is required")
	case b.scope == nil:
		return nil, fmt.Errorf("auth service: atomic scope is required")
	case b.jwt == nil:
		return nil, fmt.Errorf("auth service: jwt service is required")
	case b.email == nil:
		return nil, fmt.Errorf("auth service: email sender is required")
	}

	return &Service{
		users:    b.users,
		sessions: b.sessions,
		oauth:    b.oauth,
		cache:    b.cache,
		scope:    b.scope,
		jwt:      b.jwt,
		email:    b.email,
		config:   b.config,
	}, nil
}
