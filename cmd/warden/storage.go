package main

import (
	"context"
	"log/slog"
	"time"

	"warden/config"
	"warden/internal/domain/repository"
	"warden/internal/infra/persistence/memory"
	"warden/internal/infra/persistence/postgres"
	"warden/internal/infra/persistence/redis"

	"go.uber.org/fx"
)

type storageParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

type storageResult struct {
	fx.Out

	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	TxManager        repository.TransactionManager
}

// newStorage selects the user store and refresh token registry from storage.driver.
func newStorage(params storageParams) (storageResult, error) {
	if params.Config.Storage != nil && params.Config.Storage.Driver == config.StorageDriverMemory {
		params.Logger.Warn("Using in-memory storage, accounts are lost on restart")

		users := memory.NewUserRepository()
		tokens := memory.NewRefreshTokenRepository()

		return storageResult{
			UserRepo:         users,
			RefreshTokenRepo: tokens,
			TxManager:        memory.NewTransactionManager(users, tokens),
		}, nil
	}

	db, err := postgres.New(postgres.Params{
		Lifecycle: params.Lc,
		Config:    params.Config,
		Logger:    params.Logger,
	})
	if err != nil {
		return storageResult{}, err
	}

	return storageResult{
		UserRepo:         postgres.NewUserRepository(db),
		RefreshTokenRepo: postgres.NewRefreshTokenRepository(db),
		TxManager:        postgres.NewTransactionManager(db),
	}, nil
}

// newOTPChallengeStore selects the challenge store from otp.store.
func newOTPChallengeStore(params storageParams) (repository.OTPChallengeRepository, error) {
	if params.Config.OTP != nil && params.Config.OTP.Store == config.OTPStoreRedis {
		client, err := redis.New(redis.Params{
			Lifecycle: params.Lc,
			Config:    params.Config,
			Logger:    params.Logger,
		})
		if err != nil {
			return nil, err
		}

		return redis.NewOTPChallengeStore(client, params.Config), nil
	}

	return memory.NewOTPChallengeStore(memory.OTPStoreParams{
		Lifecycle: params.Lc,
		Config:    params.Config,
		Logger:    params.Logger,
	}), nil
}

const registrySweepInterval = time.Hour

// scheduleRegistrySweep purges expired refresh token records while the registry is enabled.
func scheduleRegistrySweep(lc fx.Lifecycle, cfg *config.Config, tokens repository.RefreshTokenRepository, logger *slog.Logger) {
	if cfg.Auth == nil || !cfg.Auth.RefreshTokenRegistry {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(registrySweepInterval)
				defer ticker.Stop()

				for {
					select {
					case <-ctx.Done():
						return
					case now := <-ticker.C:
						removed, err := tokens.DeleteExpiredRefreshTokens(ctx, now)
						if err != nil {
							logger.Warn("Refresh token sweep failed", slog.Any("error", err))

							continue
						}
						logger.Debug("Refresh token sweep finished", slog.Int64("removed", removed))
					}
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()

			return nil
		},
	})
}
