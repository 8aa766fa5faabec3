package usecase

import (
	"context"

	"warden/internal/domain/entity"
	"warden/internal/domain/policy"
)

// GuardUsecase turns bearer tokens into an AuthContext and checks it against the policy table.
type GuardUsecase interface {
	// Authenticate verifies an access token. Every failure is reported as Unauthenticated.
	Authenticate(ctx context.Context, token string) (entity.AuthContext, error)

	// Authorize reports Forbidden when the role may not perform the operation.
	Authorize(ac entity.AuthContext, op policy.Operation) error
}
