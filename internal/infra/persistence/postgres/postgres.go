package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"warden/config"
	"warden/internal/domain/lifecycle"
	"warden/internal/errors"
	"warden/internal/infra/persistence/model"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	poolMonitorInterval = 5 * time.Second
	poolWaitWarnAfter   = 50 * time.Millisecond
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the PostgreSQL connection through go-lib, routes GORM logs to slog
// and registers ping, optional migration and shutdown on the lifecycle.
func New(params Params) (*gorm.DB, error) {
	db, err := pgLib.New(params.Config.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL client")
	}
	// Unique violations surface as gorm.ErrDuplicatedKey.
	db.TranslateError = true
	db = db.Session(&gorm.Session{
		// Multi-step writes go through TransactionManager.Execute.
		SkipDefaultTransaction: true,
		Logger:                 newGormLogger(params.Logger, params.Config),
	})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}

	autoMigrate := params.Config.Storage != nil && params.Config.Storage.AutoMigrate
	monitorCtx, cancelMonitor := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping PostgreSQL")
			}

			if autoMigrate {
				if err := db.WithContext(ctx).AutoMigrate(&model.UserModel{}, &model.RefreshTokenModel{}); err != nil {
					return errors.Wrap(err, "failed to migrate PostgreSQL schema")
				}
			}

			go watchPool(monitorCtx, params.Logger, sqlDB)

			return nil
		},
		OnStop: func(_ context.Context) error {
			cancelMonitor()

			return sqlDB.Close()
		},
	})

	return db, nil
}

// watchPool reports connection pool contention between ticks.
func watchPool(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB) {
	ticker := time.NewTicker(poolMonitorInterval)
	defer ticker.Stop()

	last := sqlDB.Stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := sqlDB.Stats()
			waits := stats.WaitCount - last.WaitCount
			waited := stats.WaitDuration - last.WaitDuration
			last = stats

			if waits <= 0 {
				continue
			}

			level := slog.LevelDebug
			if waited >= poolWaitWarnAfter {
				level = slog.LevelWarn
			}
			logger.LogAttrs(ctx, level, "Postgres pool contention",
				slog.Int64("waits", waits),
				slog.Duration("waited", waited),
				slog.Int("open", stats.OpenConnections),
				slog.Int("inUse", stats.InUse),
				slog.Int("maxOpen", stats.MaxOpenConnections),
			)
		}
	}
}
