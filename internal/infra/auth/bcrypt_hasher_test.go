package auth

import (
	"testing"

	"warden/config"
	domainerrors "warden/internal/domain/errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(policy *config.PasswordStrengthConfig) *bcryptHasher {
	return NewBcryptHasherWithCost(bcrypt.MinCost, policy).(*bcryptHasher)
}

func TestBcryptHasher_Hash(t *testing.T) {
	hasher := newTestHasher(nil)

	password := "pass123"
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	// Same input, different salt.
	again, err := hasher.Hash(password)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)

	assert.True(t, hasher.Check(password, hash))
	assert.True(t, hasher.Check(password, again))
}

func TestBcryptHasher_Check(t *testing.T) {
	hasher := newTestHasher(nil)
	password := "pass123"

	hash, err := hasher.Hash(password)
	require.NoError(t, err)

	assert.True(t, hasher.Check(password, hash))
	assert.False(t, hasher.Check("pass124", hash))
	assert.False(t, hasher.Check("", hash))
	assert.False(t, hasher.Check(password, "invalid_hash"))
	assert.False(t, hasher.Check(password, ""))
}

func TestBcryptHasher_WithCustomCost(t *testing.T) {
	customCost := 6
	hasher := NewBcryptHasherWithCost(customCost, nil)

	hash, err := hasher.Hash("pass123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, customCost, cost)
}

func TestBcryptHasher_CostIsClamped(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, newTestHasher(nil).cost)
	assert.Equal(t, bcrypt.MinCost, NewBcryptHasherWithCost(1, nil).(*bcryptHasher).cost)
	assert.Equal(t, bcrypt.MaxCost, NewBcryptHasherWithCost(99, nil).(*bcryptHasher).cost)
}

func TestNewBcryptHasher_FromConfig(t *testing.T) {
	cfg := &config.Config{Auth: &config.AuthConfig{BcryptCost: 5}}
	hasher := NewBcryptHasher(cfg).(*bcryptHasher)
	assert.Equal(t, 5, hasher.cost)

	hasher = NewBcryptHasher(&config.Config{}).(*bcryptHasher)
	assert.Equal(t, bcrypt.DefaultCost, hasher.cost)
}

func TestBcryptHasher_ValidatePasswordStrength(t *testing.T) {
	hasher := newTestHasher(&config.PasswordStrengthConfig{MinLength: 4, MaxLength: 8})

	for _, password := range []string{"1234", "pass123", "abcdefgh"} {
		assert.NoError(t, hasher.ValidatePasswordStrength(password), password)
	}

	testCases := []struct {
		password    string
		expectedErr string
	}{
		{"123", "must be at least 4 characters long"},
		{"", "must be at least 4 characters long"},
		{"abcdefghi", "must be at most 8 characters long"},
	}

	for _, tc := range testCases {
		err := hasher.ValidatePasswordStrength(tc.password)
		require.Error(t, err, tc.password)
		assert.True(t, errors.Is(err, domainerrors.ErrPasswordStrength))
		assert.Contains(t, err.Error(), tc.expectedErr)
	}
}

func TestBcryptHasher_CharacterClasses(t *testing.T) {
	hasher := newTestHasher(&config.PasswordStrengthConfig{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSpecial:   true,
	})

	assert.NoError(t, hasher.ValidatePasswordStrength("StrongPass123!"))
	assert.NoError(t, hasher.ValidatePasswordStrength("Pässphräse123!"))

	testCases := []struct {
		password    string
		expectedErr string
	}{
		{"PASSWORD123!", "must contain at least one lowercase letter"},
		{"password123!", "must contain at least one uppercase letter"},
		{"PasswordABC!", "must contain at least one number"},
		{"Password123", "must contain at least one special character"},
	}

	for _, tc := range testCases {
		err := hasher.ValidatePasswordStrength(tc.password)
		require.Error(t, err, tc.password)
		assert.Contains(t, err.Error(), tc.expectedErr)
	}
}

func TestBcryptHasher_RejectsOverlongInput(t *testing.T) {
	hasher := newTestHasher(&config.PasswordStrengthConfig{MinLength: 1})

	err := hasher.ValidatePasswordStrength(string(make([]byte, 73)))
	assert.True(t, errors.Is(err, domainerrors.ErrPasswordStrength))
}

func TestBcryptHasher_PasswordStrengthHelpers(t *testing.T) {
	hasher := &bcryptHasher{}

	assert.True(t, hasher.hasUppercase("Password"))
	assert.False(t, hasher.hasUppercase("password"))

	assert.True(t, hasher.hasLowercase("Password"))
	assert.False(t, hasher.hasLowercase("PASSWORD"))

	assert.True(t, hasher.hasNumbers("Password123"))
	assert.False(t, hasher.hasNumbers("Password"))

	assert.True(t, hasher.hasSpecialChars("Password!"))
	assert.False(t, hasher.hasSpecialChars("Password"))
}
