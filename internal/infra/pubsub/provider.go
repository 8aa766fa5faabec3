// Package pubsub delivers one-time codes to the mail service over Pub/Sub.
package pubsub

import (
	"context"
	"log/slog"

	"warden/config"
	"warden/internal/domain/lifecycle"
	"warden/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// noopCodeSender drops events when no transport is configured.
type noopCodeSender struct {
	logger *slog.Logger
}

func (s *noopCodeSender) SendCode(ctx context.Context, event *service.CodeDeliveryEvent) error {
	s.logger.WarnContext(ctx, "Code delivery disabled, event dropped",
		slog.String("event_id", event.EventID),
		slog.String("purpose", string(event.Purpose)),
	)

	return nil
}

func (s *noopCodeSender) Close() error {
	return nil
}

// SenderParams holds dependencies for the CodeSender, injected by Fx
type SenderParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewCodeSender picks the transport from pubsub.provider.
func NewCodeSender(params SenderParams) (service.CodeSender, error) {
	cfg := params.Config.PubSub
	logger := params.Logger

	if cfg == nil || cfg.Provider == "" {
		logger.Warn("PubSub not configured, codes will not be delivered")

		return &noopCodeSender{logger: logger}, nil
	}

	var (
		sender service.CodeSender
		err    error
	)

	switch cfg.Provider {
	case config.PubSubProviderLocal:
		if cfg.LocalEndpoint == "" {
			return nil, errors.New("local endpoint is required for local provider")
		}
		logger.Info("Using local HTTP code sender", slog.String("endpoint", cfg.LocalEndpoint))

		sender = NewLocalHTTPCodeSender(cfg.LocalEndpoint, logger)

	case config.PubSubProviderGoogle:
		if cfg.ProjectID == "" || cfg.TopicID == "" {
			return nil, errors.New("project ID and topic ID are required for google provider")
		}
		logger.Info("Using Google Pub/Sub code sender",
			slog.String("project_id", cfg.ProjectID),
			slog.String("topic_id", cfg.TopicID),
		)

		ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
		defer cancel()

		sender, err = NewGoogleCodeSender(ctx, cfg.ProjectID, cfg.TopicID, logger)
		if err != nil {
			return nil, err
		}

	default:
		return nil, errors.Errorf("unknown pubsub provider: %s", cfg.Provider)
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("Closing code sender")

			return sender.Close()
		},
	})

	return sender, nil
}
