package storage

import (
	"context"
	"time"

	"github.com/iudanet/themeshop/internal/models"
)

// TokenStorage defines the active refresh token index
type TokenStorage interface {
	// SaveRefreshToken records a newly issued refresh token
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken retrieves refresh token by its id (jti)
	// Returns ErrTokenNotFound if token is not in the index
	GetRefreshToken(ctx context.Context, id string) (*models.RefreshToken, error)

	// RotateRefreshToken atomically removes the old token and records the new one.
	// The old token must belong to next.UserID.
	// Returns ErrTokenNotFound if the old token is not in the index (already used or never issued);
	// in that case the new token is not recorded.
	RotateRefreshToken(ctx context.Context, oldID string, next *models.RefreshToken) error

	// DeleteUserTokens deletes all refresh tokens for a user
	// Returns number of deleted tokens
	DeleteUserTokens(ctx context.Context, userID string) (int, error)

	// DeleteExpiredTokens removes all tokens expired before now
	// Returns number of deleted tokens
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)
}
