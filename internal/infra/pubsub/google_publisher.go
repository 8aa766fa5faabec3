package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"warden/internal/domain/service"

	"cloud.google.com/go/pubsub/v2"
	pubsubpb "cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/pkg/errors"
)

// googleCodeSender publishes code delivery events to a Google Cloud Pub/Sub topic
// consumed by the mail service.
type googleCodeSender struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	logger    *slog.Logger
}

// NewGoogleCodeSender connects to Pub/Sub and checks that the topic exists.
func NewGoogleCodeSender(ctx context.Context, projectID, topicID string, logger *slog.Logger) (service.CodeSender, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	topicPath := fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
	if _, err := client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topicPath}); err != nil {
		client.Close()

		return nil, errors.Wrapf(err, "failed to get topic %s", topicID)
	}

	return &googleCodeSender{
		client:    client,
		publisher: client.Publisher(topicID),
		logger:    logger,
	}, nil
}

// SendCode publishes the event and waits for the server acknowledgement.
func (s *googleCodeSender) SendCode(ctx context.Context, event *service.CodeDeliveryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: eventAttributes(event),
	})

	serverID, err := result.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to publish code delivery event")
	}

	s.logger.InfoContext(ctx, "Code delivery event published",
		slog.String("event_id", event.EventID),
		slog.String("purpose", string(event.Purpose)),
		slog.String("server_id", serverID),
	)

	return nil
}

// Close flushes pending messages and releases the client.
func (s *googleCodeSender) Close() error {
	if s.publisher != nil {
		s.publisher.Stop()
	}
	if s.client != nil {
		return errors.WithStack(s.client.Close())
	}

	return nil
}

// eventAttributes never includes the code itself.
func eventAttributes(event *service.CodeDeliveryEvent) map[string]string {
	attributes := map[string]string{
		"event_id": event.EventID,
		"purpose":  string(event.Purpose),
	}
	if event.RequestID != "" {
		attributes["request_id"] = event.RequestID
	}

	return attributes
}
