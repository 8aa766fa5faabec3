package service

import (
	"time"

	"warden/internal/domain/entity"

	"github.com/google/uuid"
)

// TokenService issues and verifies signed access/refresh token pairs.
type TokenService interface {
	// IssuePair creates a new access token and refresh token for the subject.
	IssuePair(subjectID uuid.UUID, role entity.Role) (*entity.TokenPair, error)

	// Verify checks structure, signature, expiry and kind, in that order.
	Verify(token string, expected entity.TokenKind) (*entity.TokenClaims, error)

	// HashToken returns a stable digest of a token for server-side storage.
	HashToken(token string) string

	// AccessTTL returns the configured lifetime of access tokens.
	AccessTTL() time.Duration

	// RefreshTTL returns the configured lifetime of refresh tokens.
	RefreshTTL() time.Duration
}
