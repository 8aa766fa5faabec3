package memory

import (
	"context"
	"sync"

	"warden/internal/domain/repository"
)

// transactionManager serializes callbacks over the shared in-memory stores.
// Writes made before a failing step are not rolled back.
type transactionManager struct {
	mu     sync.Mutex
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
}

type repositoryFactory struct {
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
}

func (f *repositoryFactory) UserRepo() repository.UserRepository {
	return f.users
}

func (f *repositoryFactory) RefreshTokenRepo() repository.RefreshTokenRepository {
	return f.tokens
}

// NewTransactionManager binds the manager to the stores it hands out.
func NewTransactionManager(users repository.UserRepository, tokens repository.RefreshTokenRepository) repository.TransactionManager {
	return &transactionManager{users: users, tokens: tokens}
}

// Execute runs fn while holding the store-wide lock.
func (tm *transactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	return fn(&repositoryFactory{users: tm.users, tokens: tm.tokens})
}
