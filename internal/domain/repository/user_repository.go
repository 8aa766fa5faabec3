// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"warden/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is a domain-specific error returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserEmailTaken is returned when a user with the same email already exists.
	ErrUserEmailTaken = errors.New("user email already exists")
)

// UserRepository defines the user store operations the authentication core relies on.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their normalized email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create persists a new user entity. The store assigns ID and timestamps.
	Create(ctx context.Context, user *entity.User) error

	// Update modifies the profile fields and role of an existing user.
	Update(ctx context.Context, user *entity.User) error

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error

	// MarkVerified flags the account as having completed email verification.
	MarkVerified(ctx context.Context, email string) error

	// Delete removes a user.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns one page of users matching the filter.
	List(ctx context.Context, filter entity.UserFilter) (*entity.UserPage, error)
}
