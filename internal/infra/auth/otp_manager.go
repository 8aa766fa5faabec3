package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"log/slog"
	"math/big"
	"time"

	"warden/config"
	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/repository"
	"warden/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	defaultOTPLength      = 6
	defaultOTPTTL         = 10 * time.Minute
	defaultOTPMaxAttempts = 5
	defaultOTPCooldown    = 60 * time.Second
)

// OTPManagerParams holds the dependencies of the OTP manager.
type OTPManagerParams struct {
	fx.In

	Config *config.Config
	Store  repository.OTPChallengeRepository
	Logger *slog.Logger

	// Generator overrides the crypto/rand code source.
	Generator service.CodeGenerator `optional:"true"`
}

type otpManager struct {
	store       repository.OTPChallengeRepository
	generator   service.CodeGenerator
	logger      *slog.Logger
	locks       *keyedMutex
	length      int
	ttl         time.Duration
	cooldown    time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewOTPManager creates the OTP manager.
func NewOTPManager(params OTPManagerParams) service.OTPManager {
	m := &otpManager{
		store:       params.Store,
		generator:   params.Generator,
		logger:      params.Logger,
		locks:       newKeyedMutex(),
		length:      defaultOTPLength,
		ttl:         defaultOTPTTL,
		cooldown:    defaultOTPCooldown,
		maxAttempts: defaultOTPMaxAttempts,
		now:         time.Now,
	}
	if m.generator == nil {
		m.generator = NewRandomCodeGenerator()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	if cfg := params.Config.OTP; cfg != nil {
		if cfg.Length > 0 {
			m.length = cfg.Length
		}
		if cfg.TTL > 0 {
			m.ttl = cfg.TTL
		}
		switch {
		case cfg.ResendCooldown > 0:
			m.cooldown = cfg.ResendCooldown
		case cfg.ResendCooldown < 0:
			m.cooldown = 0
		}
		if cfg.MaxAttempts > 0 {
			m.maxAttempts = cfg.MaxAttempts
		}
	}

	return m
}

// Issue creates a fresh challenge, replacing any previous one for the email.
func (m *otpManager) Issue(ctx context.Context, email string) (*entity.OTPChallenge, error) {
	unlock := m.locks.Lock(email)
	defer unlock()

	return m.issueLocked(ctx, email)
}

// Resend re-issues the code unless a code was issued for the email within the cooldown window.
// The last issue is tracked apart from the challenge, so exhausting or consuming a challenge
// does not reset the cooldown.
func (m *otpManager) Resend(ctx context.Context, email string) (*entity.OTPChallenge, error) {
	unlock := m.locks.Lock(email)
	defer unlock()

	lastIssued, ok, err := m.store.LastIssued(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load last otp issue")
	}
	if ok {
		if wait := lastIssued.Add(m.cooldown).Sub(m.now()); wait > 0 {
			return nil, errors.Wrapf(domainerrors.ErrRateLimited, "retry in %s", wait.Round(time.Second))
		}
	}

	return m.issueLocked(ctx, email)
}

// Verify redeems the code. Only one caller can consume a given challenge.
func (m *otpManager) Verify(ctx context.Context, email, code string) error {
	unlock := m.locks.Lock(email)
	defer unlock()

	challenge, err := m.store.Find(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrOTPChallengeNotFound) {
			return errors.WithStack(domainerrors.ErrOTPNotFound)
		}

		return errors.Wrap(err, "failed to load otp challenge")
	}

	if challenge.IsExpired(m.now()) {
		if _, err := m.store.Delete(ctx, email); err != nil {
			return errors.Wrap(err, "failed to delete expired otp challenge")
		}

		return errors.WithStack(domainerrors.ErrOTPExpired)
	}

	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(code)) != 1 {
		return m.recordMismatch(ctx, challenge)
	}

	removed, err := m.store.Delete(ctx, email)
	if err != nil {
		return errors.Wrap(err, "failed to consume otp challenge")
	}
	// Another process consumed it first.
	if !removed {
		return errors.WithStack(domainerrors.ErrOTPNotFound)
	}

	return nil
}

// Invalidate drops any live challenge for the email.
func (m *otpManager) Invalidate(ctx context.Context, email string) error {
	unlock := m.locks.Lock(email)
	defer unlock()

	if _, err := m.store.Delete(ctx, email); err != nil {
		return errors.Wrap(err, "failed to invalidate otp challenge")
	}

	return nil
}

func (m *otpManager) issueLocked(ctx context.Context, email string) (*entity.OTPChallenge, error) {
	code, err := m.generator.Generate(m.length)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate otp code")
	}

	now := m.now()
	challenge := &entity.OTPChallenge{
		Email:     email,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, challenge); err != nil {
		return nil, errors.Wrap(err, "failed to store otp challenge")
	}
	if m.cooldown > 0 {
		if err := m.store.MarkIssued(ctx, email, now, m.cooldown); err != nil {
			return nil, errors.Wrap(err, "failed to mark otp issue")
		}
	}

	m.logger.DebugContext(ctx, "Issued otp challenge",
		slog.String("email", email),
		slog.Time("expires_at", challenge.ExpiresAt),
	)

	issued := *challenge

	return &issued, nil
}

func (m *otpManager) recordMismatch(ctx context.Context, challenge *entity.OTPChallenge) error {
	attempts, ok, err := m.store.RecordAttempt(ctx, challenge)
	if err != nil {
		return errors.Wrap(err, "failed to record otp attempt")
	}
	// Consumed or replaced by another process since Find.
	if !ok {
		return errors.WithStack(domainerrors.ErrOTPNotFound)
	}

	if attempts >= m.maxAttempts {
		if _, err := m.store.Delete(ctx, challenge.Email); err != nil {
			return errors.Wrap(err, "failed to delete exhausted otp challenge")
		}
		m.logger.WarnContext(ctx, "Otp challenge exhausted",
			slog.String("email", challenge.Email),
			slog.Int("attempts", attempts),
		)

		return errors.WithStack(domainerrors.ErrOTPTooManyAttempts)
	}

	return errors.WithStack(domainerrors.ErrOTPMismatch)
}

type randomCodeGenerator struct{}

// NewRandomCodeGenerator returns a generator backed by crypto/rand.
func NewRandomCodeGenerator() service.CodeGenerator {
	return randomCodeGenerator{}
}

// Generate returns a uniformly random numeric string of the given length.
func (randomCodeGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.Errorf("invalid code length %d", length)
	}

	ten := big.NewInt(10)
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", errors.Wrap(err, "failed to read random digit")
		}
		code[i] = byte('0' + n.Int64())
	}

	return string(code), nil
}
