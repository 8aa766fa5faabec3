// Package memory contains in-process implementations of the persistence layer.
// They back the service when storage.driver is "memory" and drive the usecase tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"warden/internal/domain/entity"
	"warden/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// UserRepository is a map-backed user store with a unique email index.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*entity.User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

// NewUserRepository creates an empty user store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[uuid.UUID]*entity.User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, errors.WithStack(repository.ErrUserNotFound)
	}

	return cloneUser(user), nil
}

// FindByEmail retrieves a user by email.
func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, errors.WithStack(repository.ErrUserNotFound)
	}

	return cloneUser(r.byID[id]), nil
}

// Create stores a new user and fills in its ID and timestamps.
func (r *UserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return errors.WithStack(repository.ErrUserEmailTaken)
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = cloneUser(user)
	r.byEmail[user.Email] = user.ID

	return nil
}

// Update replaces the profile fields and role of an existing user.
func (r *UserRepository) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok {
		return errors.WithStack(repository.ErrUserNotFound)
	}

	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.PhoneNumber = user.PhoneNumber
	stored.BirthDate = cloneTime(user.BirthDate)
	stored.Role = user.Role
	stored.UpdatedAt = r.now()
	user.UpdatedAt = stored.UpdatedAt

	return nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *UserRepository) UpdatePasswordHash(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return errors.WithStack(repository.ErrUserNotFound)
	}
	stored.PasswordHash = passwordHash
	stored.UpdatedAt = r.now()

	return nil
}

// MarkVerified flags the account as verified.
func (r *UserRepository) MarkVerified(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return errors.WithStack(repository.ErrUserNotFound)
	}
	stored := r.byID[id]
	stored.Verified = true
	stored.UpdatedAt = r.now()

	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return errors.WithStack(repository.ErrUserNotFound)
	}
	delete(r.byEmail, stored.Email)
	delete(r.byID, id)

	return nil
}

// List filters, sorts and pages the stored users.
func (r *UserRepository) List(_ context.Context, filter entity.UserFilter) (*entity.UserPage, error) {
	filter = filter.Normalize()

	r.mu.RLock()
	matched := make([]*entity.User, 0, len(r.byID))
	for _, user := range r.byID {
		if matchesFilter(user, filter) {
			matched = append(matched, cloneUser(user))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *entity.User) int {
		var c int
		if filter.SortBy == entity.SortByName {
			c = cmp.Or(
				strings.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName)),
				strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName)),
			)
		} else {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if filter.SortOrder == entity.SortDesc {
			c = -c
		}

		return cmp.Or(c, strings.Compare(a.Email, b.Email))
	})

	page := &entity.UserPage{
		Total: int64(len(matched)),
		Page:  filter.Page,
		Limit: filter.Limit,
		Users: []*entity.User{},
	}
	if offset := filter.Offset(); offset < len(matched) {
		end := min(offset+filter.Limit, len(matched))
		page.Users = matched[offset:end]
	}

	return page, nil
}

func matchesFilter(user *entity.User, filter entity.UserFilter) bool {
	if filter.Role != "" && user.Role != filter.Role {
		return false
	}

	return containsFold(user.FirstName, filter.FirstName) &&
		containsFold(user.LastName, filter.LastName) &&
		containsFold(user.Email, filter.Email) &&
		containsFold(user.PhoneNumber, filter.PhoneNumber)
}

func containsFold(value, substr string) bool {
	if substr == "" {
		return true
	}

	return strings.Contains(strings.ToLower(value), strings.ToLower(substr))
}

func cloneUser(user *entity.User) *entity.User {
	clone := *user
	clone.BirthDate = cloneTime(user.BirthDate)

	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t

	return &v
}
