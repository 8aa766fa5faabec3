// Package service declares the stateless capabilities the use cases depend on.
// Implementations live under internal/infra.
package service

// PasswordHasher turns plaintext passwords into salted one-way hashes and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Check reports whether password matches hash. A malformed hash never matches.
	Check(password, hash string) bool

	// ValidatePasswordStrength applies the configured password policy.
	ValidatePasswordStrength(password string) error
}
