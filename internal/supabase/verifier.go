package supabase

import (
	"context"
	"errors"
	"fmt"

	"cnoloyalty/internal/auth"
)

// Verifier checks bearer tokens remotely, for deployments without the JWT secret.
func (c *Client) Verifier() auth.TokenVerifier {
	return auth.VerifierFunc(func(ctx context.Context, token string) (*auth.Identity, error) {
		u, err := c.VerifyToken(ctx, token)
		switch {
		case errors.Is(err, ErrUnauthorized):
			return nil, auth.ErrInvalidToken
		case err != nil:
			return nil, fmt.Errorf("%w: %w", auth.ErrVerifierUnavailable, err)
		}
		return &auth.Identity{AccountID: u.ID, Email: u.Email}, nil
	})
}
