package impl

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"warden/config"
	"warden/internal/domain/service"
	"warden/internal/infra/auth"
	"warden/internal/infra/persistence/memory"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testCode = "482913"

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(registry bool) *config.Config {
	return &config.Config{
		SecretKey: config.SecretKeyConfig{Access: "access-secret", Refresh: "refresh-secret"},
		Token:     &config.TokenConfig{Issuer: "warden-test", AccessTTL: 15 * time.Minute, RefreshTTL: 24 * time.Hour},
		Auth:      &config.AuthConfig{BcryptCost: bcrypt.MinCost, RefreshTokenRegistry: registry},
		OTP: &config.OTPConfig{
			Length:         6,
			TTL:            10 * time.Minute,
			ResendCooldown: time.Hour,
			MaxAttempts:    5,
			Retention:      10 * time.Minute,
		},
	}
}

type mockCodeSender struct {
	mock.Mock
}

func (m *mockCodeSender) SendCode(ctx context.Context, event *service.CodeDeliveryEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *mockCodeSender) Close() error {
	return nil
}

type constantCodeGenerator string

func (g constantCodeGenerator) Generate(int) (string, error) {
	return string(g), nil
}

// serviceFixtures wires the use cases to in-memory infrastructure.
type serviceFixtures struct {
	cfg      *config.Config
	account  *accountService
	admin    *userAdminService
	guard    *guardService
	users    *memory.UserRepository
	tokens   *memory.RefreshTokenRepository
	otpStore *memory.OTPChallengeStore
	tokenSvc service.TokenService
	hasher   service.PasswordHasher
	sender   *mockCodeSender
}

func newServiceFixtures(t *testing.T, cfg *config.Config) serviceFixtures {
	t.Helper()

	logger := newDiscardLogger()
	users := memory.NewUserRepository()
	tokens := memory.NewRefreshTokenRepository()
	txManager := memory.NewTransactionManager(users, tokens)
	otpStore := memory.NewOTPChallengeStore(memory.OTPStoreParams{Config: cfg, Logger: logger})

	tokenSvc, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	hasher := auth.NewBcryptHasher(cfg)
	otpManager := auth.NewOTPManager(auth.OTPManagerParams{
		Config:    cfg,
		Store:     otpStore,
		Logger:    logger,
		Generator: constantCodeGenerator(testCode),
	})
	sender := &mockCodeSender{}
	t.Cleanup(func() { sender.AssertExpectations(t) })

	account := NewAccountService(AccountServiceParams{
		TxManager:        txManager,
		UserRepo:         users,
		RefreshTokenRepo: tokens,
		Hasher:           hasher,
		TokenService:     tokenSvc,
		OTPManager:       otpManager,
		CodeSender:       sender,
		Config:           cfg,
		Logger:           logger,
	})
	admin := NewUserAdminService(UserAdminServiceParams{
		TxManager:  txManager,
		UserRepo:   users,
		OTPManager: otpManager,
		Logger:     logger,
	})
	guard := NewGuardService(GuardServiceParams{TokenService: tokenSvc, Logger: logger})

	return serviceFixtures{
		cfg:      cfg,
		account:  account.(*accountService),
		admin:    admin.(*userAdminService),
		guard:    guard.(*guardService),
		users:    users,
		tokens:   tokens,
		otpStore: otpStore,
		tokenSvc: tokenSvc,
		hasher:   hasher,
		sender:   sender,
	}
}

// expectCode registers one delivery of the activation code to email.
func (f serviceFixtures) expectCode(email string) {
	f.sender.On("SendCode", mock.Anything, mock.MatchedBy(func(event *service.CodeDeliveryEvent) bool {
		return event.Email == email && event.Code == testCode && event.Purpose == service.CodePurposeActivation
	})).Return(nil).Once()
}
