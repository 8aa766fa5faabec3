package impl

import (
	"context"
	"testing"

	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/policy"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardService_Authenticate(t *testing.T) {
	f := newServiceFixtures(t, newTestConfig(false))
	subject := uuid.New()

	pair, err := f.tokenSvc.IssuePair(subject, entity.RoleUser)
	require.NoError(t, err)

	t.Run("access token", func(t *testing.T) {
		ac, err := f.guard.Authenticate(context.Background(), pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, subject, ac.SubjectID)
		assert.Equal(t, entity.RoleUser, ac.Role)
	})

	for name, token := range map[string]string{
		"refresh token": pair.RefreshToken,
		"garbage":       "not-a-jwt",
		"empty":         "",
	} {
		t.Run(name, func(t *testing.T) {
			ac, err := f.guard.Authenticate(context.Background(), token)
			assert.True(t, errors.Is(err, domainerrors.ErrUnauthenticated))
			assert.True(t, ac.IsZero())
		})
	}
}

func TestGuardService_Authorize(t *testing.T) {
	f := newServiceFixtures(t, newTestConfig(false))
	user := entity.AuthContext{SubjectID: uuid.New(), Role: entity.RoleUser}
	admin := entity.AuthContext{SubjectID: uuid.New(), Role: entity.RoleAdmin}

	assert.NoError(t, f.guard.Authorize(user, policy.OpUpdatePassword))
	assert.NoError(t, f.guard.Authorize(admin, policy.OpDeleteUser))
	assert.True(t, errors.Is(f.guard.Authorize(user, policy.OpDeleteUser), domainerrors.ErrForbidden))
	assert.True(t, errors.Is(f.guard.Authorize(admin, policy.Operation("unknown")), domainerrors.ErrForbidden))
	assert.True(t, errors.Is(f.guard.Authorize(entity.AuthContext{}, policy.OpGetProfile), domainerrors.ErrUnauthenticated))
}
