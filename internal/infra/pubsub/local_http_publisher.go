package pubsub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	deliverycontext "warden/internal/delivery/context"
	"warden/internal/domain/service"

	"github.com/pkg/errors"
)

const localSubscription = "projects/local/subscriptions/otp-delivery"

// PushMessage mirrors the body Google Pub/Sub sends to push subscribers,
// so a local mail worker can consume the same payload in development.
type PushMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// localHTTPCodeSender posts push-formatted messages to a local endpoint.
type localHTTPCodeSender struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLocalHTTPCodeSender creates a sender for development setups.
func NewLocalHTTPCodeSender(endpoint string, logger *slog.Logger) service.CodeSender {
	return &localHTTPCodeSender{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SendCode wraps the event in a push envelope and POSTs it.
func (s *localHTTPCodeSender) SendCode(ctx context.Context, event *service.CodeDeliveryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	var push PushMessage
	push.Subscription = localSubscription
	push.Message.Data = base64.StdEncoding.EncodeToString(data)
	push.Message.Attributes = eventAttributes(event)
	push.Message.MessageID = event.EventID
	push.Message.PublishTime = time.Now().UTC().Format(time.RFC3339)

	body, err := json.Marshal(push)
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if event.RequestID != "" {
		req.Header.Set(deliverycontext.HeaderXRequestID, event.RequestID)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to post code delivery event")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("code delivery endpoint returned status %d", resp.StatusCode)
	}

	s.logger.InfoContext(ctx, "Code delivery event posted",
		slog.String("event_id", event.EventID),
		slog.String("endpoint", s.endpoint),
	)

	return nil
}

// Close is a no-op for the HTTP client.
func (s *localHTTPCodeSender) Close() error {
	return nil
}
