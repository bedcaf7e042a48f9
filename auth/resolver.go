package auth

import (
	"context"
	"errors"
	"fmt"

	"threadfeed/feeds"
	"threadfeed/models"
)

// Store is what the resolver reads to check a parsed credential
type Store interface {
	// LocalUserById returns models.ErrNotFound for unknown ids
	LocalUserById(ctx context.Context, id int64) (*models.LocalUserView, error)
	// LoginToken returns models.ErrNotFound for unknown or revoked tokens
	LoginToken(ctx context.Context, id string) (*models.LoginToken, error)
}

// Resolver maps feed credentials to local users
type Resolver struct {
	tokens *Tokens
	store  Store
}

var _ feeds.IdentityResolver = (*Resolver)(nil)

func NewResolver(tokens *Tokens, store Store) *Resolver {
	return &Resolver{tokens: tokens, store: store}
}

// Resolve accepts a credential only if it verifies, its login token is still
// stored and unexpired, and the account is neither banned nor deleted.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.LocalUserView, error) {
	claims, err := r.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	localUserId, err := claims.LocalUserId()
	if err != nil {
		return nil, err
	}

	login, err := r.store.LoginToken(ctx, claims.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read login token: %w", err)
	}
	if login.LocalUserId != localUserId {
		return nil, fmt.Errorf("%w: token subject mismatch", ErrInvalidToken)
	}
	if !login.Expires.After(r.tokens.now()) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}

	user, err := r.store.LocalUserById(ctx, localUserId)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local user: %w", err)
	}
	if user.Person.Banned || user.Person.Deleted {
		return nil, fmt.Errorf("%w: account disabled", ErrInvalidToken)
	}

	return user, nil
}
