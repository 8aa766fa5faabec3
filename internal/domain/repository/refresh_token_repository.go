// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"time"

	"warden/internal/domain/entity"

	"github.com/google/uuid"
)

// RefreshTokenRepository is the optional registry of issued refresh tokens.
// It enables rotation and revocation; without it refresh tokens are valid until they expire.
type RefreshTokenRepository interface {
	// CreateRefreshToken persists a new refresh token record.
	CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error

	// DeleteRefreshTokenByHash deletes a refresh token and reports whether it existed.
	DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) (bool, error)

	// DeleteRefreshTokensByUserID removes all refresh tokens for a specific user.
	DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) error

	// DeleteExpiredRefreshTokens removes tokens that expired before the given time.
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}
