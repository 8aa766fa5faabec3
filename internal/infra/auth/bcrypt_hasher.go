// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"warden/config"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/service"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const specialChars = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost   int
	policy config.PasswordStrengthConfig
}

// NewBcryptHasher is the constructor for bcryptHasher.
// It returns the implementation as a service.PasswordHasher interface.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	cost := bcrypt.DefaultCost
	if cfg.Auth != nil && cfg.Auth.BcryptCost != 0 {
		cost = cfg.Auth.BcryptCost
	}

	return NewBcryptHasherWithCost(cost, cfg.PasswordStrength)
}

// NewBcryptHasherWithCost builds a hasher with an explicit cost, clamped to bcrypt's valid range.
func NewBcryptHasherWithCost(cost int, policy *config.PasswordStrengthConfig) service.PasswordHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	h := &bcryptHasher{cost: cost}
	if policy != nil {
		h.policy = *policy
	}

	return h
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	// err is nil if the password and hash match.
	return err == nil
}

// ValidatePasswordStrength checks the password against the configured policy.
func (h *bcryptHasher) ValidatePasswordStrength(password string) error {
	length := utf8.RuneCountInString(password)

	if length < h.policy.MinLength {
		return errors.Wrapf(domainerrors.ErrPasswordStrength, "must be at least %d characters long", h.policy.MinLength)
	}
	if h.policy.MaxLength > 0 && length > h.policy.MaxLength {
		return errors.Wrapf(domainerrors.ErrPasswordStrength, "must be at most %d characters long", h.policy.MaxLength)
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) > 72 {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "must be at most 72 bytes long")
	}
	if h.policy.RequireLowercase && !h.hasLowercase(password) {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "must contain at least one lowercase letter")
	}
	if h.policy.RequireUppercase && !h.hasUppercase(password) {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "must contain at least one uppercase letter")
	}
	if h.policy.RequireNumbers && !h.hasNumbers(password) {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "must contain at least one number")
	}
	if h.policy.RequireSpecial && !h.hasSpecialChars(password) {
		return errors.Wrap(domainerrors.ErrPasswordStrength, "must contain at least one special character")
	}

	return nil
}

func (h *bcryptHasher) hasUppercase(s string) bool {
	return strings.IndexFunc(s, unicode.IsUpper) >= 0
}

func (h *bcryptHasher) hasLowercase(s string) bool {
	return strings.IndexFunc(s, unicode.IsLower) >= 0
}

func (h *bcryptHasher) hasNumbers(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func (h *bcryptHasher) hasSpecialChars(s string) bool {
	return strings.ContainsAny(s, specialChars)
}
