// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"
	"warden/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by id")
	}

	return toUserDomain(&userM), nil
}

// FindByEmail retrieves a single user by their email address.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where("email = ?", email).First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	return toUserDomain(&userM), nil
}

// Create persists a new user.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	userM := fromUserDomain(user)

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.WithStack(repository.ErrUserEmailTaken)
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required user information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// Update modifies the profile fields and role of an existing user.
func (repo *userRepository) Update(ctx context.Context, user *entity.User) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{ID: user.ID}).
		Select("first_name", "last_name", "phone_number", "birth_date", "role").
		Updates(&model.UserModel{
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			PhoneNumber: user.PhoneNumber,
			BirthDate:   user.BirthDate,
			Role:        user.Role.String(),
		})

	return repo.checkSingleRowUpdate(result, "failed to update user")
}

// UpdatePasswordHash replaces the stored password hash.
func (repo *userRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{ID: id}).
		Update("password_hash", passwordHash)

	return repo.checkSingleRowUpdate(result, "failed to update password hash")
}

// MarkVerified flags the account as verified.
func (repo *userRepository) MarkVerified(ctx context.Context, email string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("email = ?", email).
		Update("verified", true)

	return repo.checkSingleRowUpdate(result, "failed to mark user verified")
}

// Delete removes a user. Registered refresh tokens go with it through the cascade.
func (repo *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Delete(&model.UserModel{}, "id = ?", id)

	return repo.checkSingleRowUpdate(result, "failed to delete user")
}

// List returns one page of users matching the filter.
func (repo *userRepository) List(ctx context.Context, filter entity.UserFilter) (*entity.UserPage, error) {
	filter = filter.Normalize()

	query := repo.db.WithContext(ctx).Model(&model.UserModel{})
	if filter.FirstName != "" {
		query = query.Where("first_name ILIKE ?", likePattern(filter.FirstName))
	}
	if filter.LastName != "" {
		query = query.Where("last_name ILIKE ?", likePattern(filter.LastName))
	}
	if filter.Email != "" {
		query = query.Where("email ILIKE ?", likePattern(filter.Email))
	}
	if filter.PhoneNumber != "" {
		query = query.Where("phone_number ILIKE ?", likePattern(filter.PhoneNumber))
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role.String())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, "failed to count users")
	}

	var users []model.UserModel
	err := query.
		Order(orderClause(filter)).
		Offset(filter.Offset()).
		Limit(filter.Limit).
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	page := &entity.UserPage{
		Users: make([]*entity.User, 0, len(users)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range users {
		page.Users = append(page.Users, toUserDomain(&users[i]))
	}

	return page, nil
}

func (repo *userRepository) checkSingleRowUpdate(result *gorm.DB, msg string) error {
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, msg)
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// --- Mapper Functions ---

func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:           data.ID,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		Role:         entity.Role(data.Role),
		Verified:     data.Verified,
		FirstName:    data.FirstName,
		LastName:     data.LastName,
		PhoneNumber:  data.PhoneNumber,
		BirthDate:    data.BirthDate,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:           data.ID,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		Role:         data.Role.String(),
		Verified:     data.Verified,
		FirstName:    data.FirstName,
		LastName:     data.LastName,
		PhoneNumber:  data.PhoneNumber,
		BirthDate:    data.BirthDate,
	}
}
