package service

import (
	"context"

	"warden/internal/domain/entity"
)

// OTPManager owns the lifecycle of one-time passcodes keyed by email.
type OTPManager interface {
	// Issue creates a fresh challenge, invalidating any previous one for the email.
	Issue(ctx context.Context, email string) (*entity.OTPChallenge, error)

	// Resend behaves like Issue unless a code was issued for the email within the cooldown window.
	Resend(ctx context.Context, email string) (*entity.OTPChallenge, error)

	// Verify redeems the code. A successful call consumes the challenge.
	Verify(ctx context.Context, email, code string) error

	// Invalidate drops any live challenge for the email.
	Invalidate(ctx context.Context, email string) error
}

// CodeGenerator produces the numeric codes handed out by the OTPManager.
type CodeGenerator interface {
	Generate(length int) (string, error)
}
