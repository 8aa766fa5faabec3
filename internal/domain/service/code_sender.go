package service

import (
	"context"
	"time"
)

// CodePurpose describes why a code was sent.
type CodePurpose string

const (
	// CodePurposeActivation is used for account activation after registration.
	CodePurposeActivation CodePurpose = "activation"
)

// CodeDeliveryEvent is handed to the message-delivery sink for each issued code.
type CodeDeliveryEvent struct {
	RequestID string      `json:"request_id,omitempty"` // For distributed tracing
	EventID   string      `json:"event_id"`
	Email     string      `json:"email"`
	Code      string      `json:"code"`
	Purpose   CodePurpose `json:"purpose"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// CodeSender delivers codes to their recipients. The mail transport behind it is outside this service.
type CodeSender interface {
	// SendCode publishes the delivery request.
	SendCode(ctx context.Context, event *CodeDeliveryEvent) error

	// Close releases any resources held by the sender
	Close() error
}
