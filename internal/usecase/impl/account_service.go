// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"sync"

	"warden/config"
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

// Compared against for unknown emails so a login miss costs one bcrypt check like a hit.
const dummyPassword = "warden-timing-equalizer"

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager     repository.TransactionManager
	userRepo      repository.UserRepository
	tokenRegistry repository.RefreshTokenRepository
	hasher        service.PasswordHasher
	tokenService  service.TokenService
	otpManager    service.OTPManager
	codeSender    service.CodeSender
	bootstrap     *config.BootstrapAdminConfig
	useRegistry   bool
	logger        *slog.Logger

	dummyHashOnce sync.Once
	dummyHash     string
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	OTPManager       service.OTPManager
	CodeSender       service.CodeSender
	Config           *config.Config
	Logger           *slog.Logger
}

// NewAccountService is the constructor for accountService. It receives all dependencies as interfaces.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	srv := &accountService{
		txManager:     params.TxManager,
		userRepo:      params.UserRepo,
		tokenRegistry: params.RefreshTokenRepo,
		hasher:        params.Hasher,
		tokenService:  params.TokenService,
		otpManager:    params.OTPManager,
		codeSender:    params.CodeSender,
		bootstrap:     params.Config.BootstrapAdmin,
		logger:        params.Logger,
	}
	if params.Config.Auth != nil {
		srv.useRegistry = params.Config.Auth.RefreshTokenRegistry
	}

	return srv
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates an unverified account and hands a fresh activation code to the code sender.
func (srv *accountService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.MessageOutput, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", email))

	user, err := srv.createAccount(ctx, email, input, entity.RoleUser, false)
	if err != nil {
		return nil, err
	}

	if err := srv.issueAndSend(ctx, email, false); err != nil {
		srv.log(ctx).Error("Failed to deliver activation code", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Debug("Registration completed", slog.Any("userID", user.ID))

	return &usecase.MessageOutput{Message: usecase.MsgRegistered}, nil
}

// RegisterAdmin creates a verified administrator. Access is checked by the guard before this runs.
func (srv *accountService) RegisterAdmin(ctx context.Context, input *usecase.RegisterInput) (*entity.User, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Info("Registering administrator", slog.String("email", email))

	return srv.createAccount(ctx, email, input, entity.RoleAdmin, true)
}

// VerifyOTP redeems the activation code and marks the account verified.
func (srv *accountService) VerifyOTP(ctx context.Context, email, code string) (*usecase.MessageOutput, error) {
	email = entity.NormalizeEmail(email)

	if err := srv.otpManager.Verify(ctx, email, code); err != nil {
		srv.log(ctx).Warn("Activation code rejected", slog.String("email", email), slog.Any("error", err))

		return nil, err
	}

	if err := srv.userRepo.MarkVerified(ctx, email); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "account removed before activation")
		}

		return nil, errors.Wrap(err, "failed to mark account verified")
	}

	srv.log(ctx).Info("Account verified", slog.String("email", email))

	return &usecase.MessageOutput{Message: usecase.MsgVerified}, nil
}

// ResendOTP re-issues the activation code for pending accounts. Unknown and already
// verified emails get the same answer without a code being issued.
func (srv *accountService) ResendOTP(ctx context.Context, email string) (*usecase.MessageOutput, error) {
	email = entity.NormalizeEmail(email)
	generic := &usecase.MessageOutput{Message: usecase.MsgCodeResent}

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Debug("Resend requested for unknown email")

			return generic, nil
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}
	if user.Verified {
		srv.log(ctx).Debug("Resend requested for verified account", slog.Any("userID", user.ID))

		return generic, nil
	}

	if err := srv.issueAndSend(ctx, email, true); err != nil {
		return nil, err
	}

	return generic, nil
}

// Login exchanges credentials for a token pair. Unknown, unverified and wrong-password
// attempts fail identically.
func (srv *accountService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting login", slog.String("email", email))

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(err, "failed to find user by email")
		}
		srv.hasher.Check(input.Password, srv.timingHash())

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "unknown email")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.Any("userID", user.ID))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "password mismatch")
	}
	if !user.CanLogin() {
		srv.log(ctx).Warn("Login before verification", slog.Any("userID", user.ID))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "account not verified")
	}

	pair, err := srv.tokenService.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue tokens")
	}

	if srv.useRegistry {
		if err := srv.tokenRegistry.CreateRefreshToken(ctx, srv.registryEntry(user.ID, pair)); err != nil {
			return nil, errors.Wrap(err, "failed to register refresh token")
		}
	}

	srv.log(ctx).Info("User logged in", slog.Any("userID", user.ID))

	return &usecase.LoginOutput{Tokens: pair, User: user}, nil
}

// RefreshToken verifies the refresh token, reloads the account and issues a new pair.
// With the registry enabled the presented token is consumed and replaced.
func (srv *accountService) RefreshToken(ctx context.Context, refreshToken string) (*usecase.LoginOutput, error) {
	claims, err := srv.tokenService.Verify(refreshToken, entity.TokenKindRefresh)
	if err != nil {
		srv.log(ctx).Debug("Refresh token rejected", slog.Any("error", err))

		return nil, err
	}

	var output *usecase.LoginOutput

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := repoFactory.UserRepo().FindByID(ctx, claims.SubjectID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrUnauthenticated, "account no longer exists")
			}

			return errors.Wrap(err, "failed to find user")
		}

		if srv.useRegistry {
			removed, err := repoFactory.RefreshTokenRepo().DeleteRefreshTokenByHash(ctx, srv.tokenService.HashToken(refreshToken))
			if err != nil {
				return errors.Wrap(err, "failed to consume refresh token")
			}
			if !removed {
				return errors.WithStack(domainerrors.ErrRefreshTokenRevoked)
			}
		}

		pair, err := srv.tokenService.IssuePair(user.ID, user.Role)
		if err != nil {
			return errors.Wrap(err, "failed to issue tokens")
		}

		if srv.useRegistry {
			if err := repoFactory.RefreshTokenRepo().CreateRefreshToken(ctx, srv.registryEntry(user.ID, pair)); err != nil {
				return errors.Wrap(err, "failed to register refresh token")
			}
		}
		output = &usecase.LoginOutput{Tokens: pair, User: user}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Token refresh failed", slog.Any("userID", claims.SubjectID), slog.Any("error", err))

		return nil, err
	}

	return output, nil
}

// Logout removes the refresh token from the registry. It always succeeds for unknown tokens.
func (srv *accountService) Logout(ctx context.Context, refreshToken string) (*usecase.MessageOutput, error) {
	if srv.useRegistry && refreshToken != "" {
		if _, err := srv.tokenRegistry.DeleteRefreshTokenByHash(ctx, srv.tokenService.HashToken(refreshToken)); err != nil {
			return nil, errors.Wrap(err, "failed to revoke refresh token")
		}
	}

	return &usecase.MessageOutput{Message: usecase.MsgLoggedOut}, nil
}

// UpdatePassword checks the current password and stores a hash of the new one.
// A wrong current password leaves the stored hash untouched.
func (srv *accountService) UpdatePassword(ctx context.Context, input *usecase.UpdatePasswordInput) (*usecase.MessageOutput, error) {
	user, err := srv.userRepo.FindByID(ctx, input.SubjectID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUnauthenticated, "account no longer exists")
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	if !srv.hasher.Check(input.OldPassword, user.PasswordHash) {
		srv.log(ctx).Warn("Password update with wrong current password", slog.Any("userID", user.ID))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "current password mismatch")
	}

	if err := srv.hasher.ValidatePasswordStrength(input.NewPassword); err != nil {
		return nil, err
	}

	hash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return nil, err
	}

	if err := srv.userRepo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return nil, errors.Wrap(err, "failed to store password hash")
	}

	srv.log(ctx).Info("Password updated", slog.Any("userID", user.ID))

	return &usecase.MessageOutput{Message: usecase.MsgPasswordUpdated}, nil
}

// EnsureBootstrapAdmin seeds the configured administrator when the email is not taken.
func (srv *accountService) EnsureBootstrapAdmin(ctx context.Context) error {
	cfg := srv.bootstrap
	if cfg == nil || cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	email := entity.NormalizeEmail(cfg.Email)
	existing, err := srv.userRepo.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != entity.RoleAdmin {
			srv.logger.Warn("Bootstrap admin email belongs to a non-admin account", slog.Any("userID", existing.ID))
		}

		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return errors.Wrap(err, "failed to look up bootstrap admin")
	}

	hash, err := srv.hasher.Hash(cfg.Password)
	if err != nil {
		return err
	}

	admin := &entity.User{
		Email:        email,
		PasswordHash: hash,
		Role:         entity.RoleAdmin,
		Verified:     true,
		FirstName:    cfg.FirstName,
		LastName:     cfg.LastName,
	}
	if err := srv.userRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrUserEmailTaken) {
			return nil
		}

		return errors.Wrap(err, "failed to create bootstrap admin")
	}

	srv.logger.Info("Bootstrap admin created", slog.Any("userID", admin.ID))

	return nil
}

func (srv *accountService) createAccount(
	ctx context.Context,
	email string,
	input *usecase.RegisterInput,
	role entity.Role,
	verified bool,
) (*entity.User, error) {
	if err := srv.hasher.ValidatePasswordStrength(input.Password); err != nil {
		return nil, err
	}

	_, err := srv.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, errors.Wrap(domainerrors.ErrDuplicateEmail, "account already exists")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to find user by email")
	}

	hash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Verified:     verified,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PhoneNumber:  input.PhoneNumber,
		BirthDate:    input.BirthDate,
	}
	if err := srv.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserEmailTaken) {
			return nil, errors.Wrap(domainerrors.ErrDuplicateEmail, "account created concurrently")
		}

		return nil, errors.Wrap(err, "failed to create user")
	}

	return user, nil
}

// issueAndSend runs outside the OTP manager's per-email lock, so a slow sink never blocks
// other requests for the same email.
func (srv *accountService) issueAndSend(ctx context.Context, email string, resend bool) error {
	var (
		challenge *entity.OTPChallenge
		err       error
	)
	if resend {
		challenge, err = srv.otpManager.Resend(ctx, email)
	} else {
		challenge, err = srv.otpManager.Issue(ctx, email)
	}
	if err != nil {
		return err
	}

	event := &service.CodeDeliveryEvent{
		RequestID: deliverycontext.GetRequestIDFromContext(ctx),
		EventID:   uuid.NewString(),
		Email:     email,
		Code:      challenge.Code,
		Purpose:   service.CodePurposeActivation,
		ExpiresAt: challenge.ExpiresAt,
	}
	if err := srv.codeSender.SendCode(ctx, event); err != nil {
		return errors.Wrap(err, "failed to send activation code")
	}

	return nil
}

func (srv *accountService) registryEntry(userID uuid.UUID, pair *entity.TokenPair) *entity.RefreshToken {
	return &entity.RefreshToken{
		UserID:    userID,
		TokenHash: srv.tokenService.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}
}

func (srv *accountService) timingHash() string {
	srv.dummyHashOnce.Do(func() {
		hash, err := srv.hasher.Hash(dummyPassword)
		if err != nil {
			srv.logger.Error("Failed to prepare timing hash", slog.Any("error", err))

			return
		}
		srv.dummyHash = hash
	})

	return srv.dummyHash
}
