package usecase

import (
	"context"
	"time"

	"warden/internal/domain/entity"

	"github.com/google/uuid"
)

// UpdateUserInput changes the profile or role of an account. Nil fields are left as they are.
type UpdateUserInput struct {
	ID          uuid.UUID
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	BirthDate   *time.Time
	Role        *entity.Role
}

// UserAdminUsecase exposes account records to their owners and to administrators.
type UserAdminUsecase interface {
	GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error)
	ListUsers(ctx context.Context, filter entity.UserFilter) (*entity.UserPage, error)
	UpdateUser(ctx context.Context, input *UpdateUserInput) (*entity.User, error)

	// DeleteUser removes the account together with its registered refresh tokens and pending code.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}
