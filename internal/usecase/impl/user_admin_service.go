package impl

import (
	"context"
	"log/slog"

	deliverycontext "warden/internal/delivery/context"
	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"
	"warden/internal/domain/service"
	"warden/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type userAdminService struct {
	txManager  repository.TransactionManager
	userRepo   repository.UserRepository
	otpManager service.OTPManager
	logger     *slog.Logger
}

// UserAdminServiceParams holds dependencies for UserAdminService, injected by Fx.
type UserAdminServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	UserRepo   repository.UserRepository
	OTPManager service.OTPManager
	Logger     *slog.Logger
}

// NewUserAdminService creates the account management use case.
func NewUserAdminService(params UserAdminServiceParams) usecase.UserAdminUsecase {
	return &userAdminService{
		txManager:  params.TxManager,
		userRepo:   params.UserRepo,
		otpManager: params.OTPManager,
		logger:     params.Logger,
	}
}

func (srv *userAdminService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *userAdminService) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapUserLookupError(err)
	}

	return user, nil
}

func (srv *userAdminService) ListUsers(ctx context.Context, filter entity.UserFilter) (*entity.UserPage, error) {
	page, err := srv.userRepo.List(ctx, filter.Normalize())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	return page, nil
}

func (srv *userAdminService) UpdateUser(ctx context.Context, input *usecase.UpdateUserInput) (*entity.User, error) {
	if input.Role != nil && !input.Role.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("unknown role")
	}

	var updated *entity.User

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		user, err := userRepo.FindByID(ctx, input.ID)
		if err != nil {
			return mapUserLookupError(err)
		}

		applyUserChanges(user, input)

		if err := userRepo.Update(ctx, user); err != nil {
			return mapUserLookupError(err)
		}
		updated = user

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("User updated", slog.Any("userID", updated.ID), slog.String("role", updated.Role.String()))

	return updated, nil
}

func (srv *userAdminService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	var email string

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := repoFactory.UserRepo().FindByID(ctx, id)
		if err != nil {
			return mapUserLookupError(err)
		}
		email = user.Email

		if err := repoFactory.RefreshTokenRepo().DeleteRefreshTokensByUserID(ctx, id); err != nil {
			return errors.Wrap(err, "failed to delete refresh tokens")
		}

		if err := repoFactory.UserRepo().Delete(ctx, id); err != nil {
			return mapUserLookupError(err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := srv.otpManager.Invalidate(ctx, email); err != nil {
		srv.log(ctx).Warn("Failed to drop pending code of deleted user", slog.Any("userID", id), slog.Any("error", err))
	}

	srv.log(ctx).Info("User deleted", slog.Any("userID", id))

	return nil
}

func applyUserChanges(user *entity.User, input *usecase.UpdateUserInput) {
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.PhoneNumber != nil {
		user.PhoneNumber = *input.PhoneNumber
	}
	if input.BirthDate != nil {
		user.BirthDate = input.BirthDate
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
}

func mapUserLookupError(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return errors.Wrap(domainerrors.ErrUserNotFound, err.Error())
	}

	return errors.Wrap(err, "user store failure")
}
