// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"warden/internal/domain/entity"

	"github.com/google/uuid"
)

// Messages returned by the account flows. Resend and registration use fixed
// wording so the response does not reveal whether an account exists.
const (
	MsgRegistered      = "Registration successful. Please check your email for the verification code."
	MsgVerified        = "Email verified successfully. You can now log in."
	MsgCodeResent      = "If the account exists and is pending verification, a new code has been sent."
	MsgPasswordUpdated = "Password updated successfully."
	MsgLoggedOut       = "Logged out successfully."
)

// --- Input DTOs ---

// RegisterInput carries the credentials and profile of a new account.
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	BirthDate   *time.Time
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
}

// UpdatePasswordInput rotates the password of the authenticated subject.
type UpdatePasswordInput struct {
	SubjectID   uuid.UUID
	OldPassword string
	NewPassword string
}

// --- Output DTOs ---

// MessageOutput is a plain acknowledgement.
type MessageOutput struct {
	Message string
}

// LoginOutput returns the issued token pair and the account it belongs to.
type LoginOutput struct {
	Tokens *entity.TokenPair
	User   *entity.User
}

// AccountUsecase covers registration, activation, login, token refresh and password rotation.
type AccountUsecase interface {
	// Register creates an unverified account and sends an activation code.
	Register(ctx context.Context, input *RegisterInput) (*MessageOutput, error)

	// RegisterAdmin creates an already verified administrator.
	RegisterAdmin(ctx context.Context, input *RegisterInput) (*entity.User, error)

	// VerifyOTP redeems the activation code and marks the account verified.
	VerifyOTP(ctx context.Context, email, code string) (*MessageOutput, error)

	// ResendOTP re-issues the activation code, subject to the resend cooldown.
	ResendOTP(ctx context.Context, email string) (*MessageOutput, error)

	// Login exchanges credentials for a token pair.
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// RefreshToken exchanges a refresh token for a new pair.
	RefreshToken(ctx context.Context, refreshToken string) (*LoginOutput, error)

	// Logout revokes the refresh token when the registry is enabled.
	Logout(ctx context.Context, refreshToken string) (*MessageOutput, error)

	// UpdatePassword replaces the password after checking the current one.
	UpdatePassword(ctx context.Context, input *UpdatePasswordInput) (*MessageOutput, error)

	// EnsureBootstrapAdmin creates the configured administrator if it does not exist yet.
	EnsureBootstrapAdmin(ctx context.Context) error
}
