package repository

import (
	"context"
	"time"

	"warden/internal/domain/entity"
	"warden/internal/errors"
)

// ErrOTPChallengeNotFound is returned when no challenge is stored for an email.
var ErrOTPChallengeNotFound = errors.New("otp challenge not found")

// OTPChallengeRepository stores at most one challenge per email.
// Callers serialize access per email within a process; writes that follow a read are conditional
// so that concurrent processes cannot resurrect a consumed challenge.
type OTPChallengeRepository interface {
	// Find returns the stored challenge, expired or not.
	Find(ctx context.Context, email string) (*entity.OTPChallenge, error)

	// Save stores a newly issued challenge, replacing any previous one for the same email.
	Save(ctx context.Context, challenge *entity.OTPChallenge) error

	// RecordAttempt increments the attempt counter of the stored challenge and returns the new count.
	// It reports false when the stored challenge is no longer the given one (consumed or replaced).
	RecordAttempt(ctx context.Context, challenge *entity.OTPChallenge) (int, bool, error)

	// Delete removes the challenge and reports whether this call removed it.
	Delete(ctx context.Context, email string) (bool, error)

	// MarkIssued records when a code was last issued for the email. The record is kept for window
	// and survives the challenge being consumed or deleted.
	MarkIssued(ctx context.Context, email string, issuedAt time.Time, window time.Duration) error

	// LastIssued returns the time recorded by MarkIssued, or false when none is kept.
	LastIssued(ctx context.Context, email string) (time.Time, bool, error)
}
