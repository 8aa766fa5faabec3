package memory

import (
	"context"
	"sync"
	"time"

	"warden/internal/domain/entity"
	"warden/internal/domain/repository"

	"github.com/google/uuid"
)

// RefreshTokenRepository keeps registered refresh tokens keyed by hash.
type RefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*entity.RefreshToken
	now    func() time.Time
}

// NewRefreshTokenRepository creates an empty registry.
func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{
		tokens: make(map[string]*entity.RefreshToken),
		now:    time.Now,
	}
}

var _ repository.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

// CreateRefreshToken registers a token.
func (r *RefreshTokenRepository) CreateRefreshToken(_ context.Context, token *entity.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = r.now()

	stored := *token
	r.tokens[token.TokenHash] = &stored

	return nil
}

// DeleteRefreshTokenByHash removes a token and reports whether it was registered.
func (r *RefreshTokenRepository) DeleteRefreshTokenByHash(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[tokenHash]; !ok {
		return false, nil
	}
	delete(r.tokens, tokenHash)

	return true, nil
}

// DeleteRefreshTokensByUserID removes every token of a user.
func (r *RefreshTokenRepository) DeleteRefreshTokensByUserID(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, token := range r.tokens {
		if token.UserID == userID {
			delete(r.tokens, hash)
		}
	}

	return nil
}

// DeleteExpiredRefreshTokens removes tokens that expired before the given time.
func (r *RefreshTokenRepository) DeleteExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, token := range r.tokens {
		if token.ExpiresAt.Before(before) {
			delete(r.tokens, hash)
			removed++
		}
	}

	return removed, nil
}
