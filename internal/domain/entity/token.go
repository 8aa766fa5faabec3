package entity

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind tells access tokens and refresh tokens apart so one cannot be replayed as the other.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// IsValid checks if the TokenKind is a known value.
func (k TokenKind) IsValid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// TokenPair is the credential set handed out on login and refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenClaims is the verified content of a token.
type TokenClaims struct {
	ID        string
	SubjectID uuid.UUID
	Role      Role
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshToken is a registered refresh token. Only its hash is stored.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
