package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"warden/internal/domain/entity"
	"warden/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	user := &entity.User{Email: "alice@example.com", PasswordHash: "hash", Role: entity.RoleUser}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	// Returned records are copies.
	byEmail.PasswordHash = "changed"
	again, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", again.PasswordHash)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	require.NoError(t, repo.Create(ctx, &entity.User{Email: "alice@example.com"}))
	err := repo.Create(ctx, &entity.User{Email: "alice@example.com"})
	assert.True(t, errors.Is(err, repository.ErrUserEmailTaken))
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	_, err := repo.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))

	assert.True(t, errors.Is(repo.MarkVerified(ctx, "nobody@example.com"), repository.ErrUserNotFound))
	assert.True(t, errors.Is(repo.UpdatePasswordHash(ctx, uuid.New(), "x"), repository.ErrUserNotFound))
	assert.True(t, errors.Is(repo.Update(ctx, &entity.User{ID: uuid.New()}), repository.ErrUserNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, uuid.New()), repository.ErrUserNotFound))
}

func TestUserRepository_Mutations(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	user := &entity.User{Email: "bob@example.com", PasswordHash: "old", Role: entity.RoleUser}
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.MarkVerified(ctx, "bob@example.com"))
	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "new"))

	user.FirstName = "Bob"
	user.Role = entity.RoleAdmin
	require.NoError(t, repo.Update(ctx, user))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)
	assert.Equal(t, "new", stored.PasswordHash)
	assert.Equal(t, "Bob", stored.FirstName)
	assert.Equal(t, entity.RoleAdmin, stored.Role)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err = repo.FindByEmail(ctx, "bob@example.com")
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))

	// The email is free again.
	require.NoError(t, repo.Create(ctx, &entity.User{Email: "bob@example.com"}))
}

func TestUserRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []struct{ first, last string }{
		{"Carol", "Young"}, {"alice", "Smith"}, {"Bob", "Smith"}, {"Dave", "Jones"},
	}
	for i, n := range names {
		createdAt := base.Add(time.Duration(i) * time.Hour)
		repo.now = func() time.Time { return createdAt }
		role := entity.RoleUser
		if i == 3 {
			role = entity.RoleAdmin
		}
		require.NoError(t, repo.Create(ctx, &entity.User{
			Email:       fmt.Sprintf("user%d@example.com", i),
			FirstName:   n.first,
			LastName:    n.last,
			PhoneNumber: fmt.Sprintf("+10000%d", i),
			Role:        role,
		}))
	}

	page, err := repo.List(ctx, entity.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	require.Len(t, page.Users, 4)
	// Newest first by default.
	assert.Equal(t, "Dave", page.Users[0].FirstName)

	page, err = repo.List(ctx, entity.UserFilter{SortBy: entity.SortByName, SortOrder: entity.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "Bob", "Carol", "Dave"}, firstNames(page.Users))

	page, err = repo.List(ctx, entity.UserFilter{LastName: "smith"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = repo.List(ctx, entity.UserFilter{Role: entity.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dave"}, firstNames(page.Users))

	page, err = repo.List(ctx, entity.UserFilter{PhoneNumber: "+100002"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, firstNames(page.Users))

	page, err = repo.List(ctx, entity.UserFilter{SortBy: entity.SortByName, SortOrder: entity.SortAsc, Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, []string{"Dave"}, firstNames(page.Users))

	page, err = repo.List(ctx, entity.UserFilter{Page: 5, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, page.Users)
}

func firstNames(users []*entity.User) []string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.FirstName
	}

	return names
}
