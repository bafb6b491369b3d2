package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/outbox/payloads"
)

// ErrNoRecipients is returned when neither operators nor an owner address exist.
var ErrNoRecipients = errors.New("email has no recipients")

// idempotencyGuard runs fn at most once per event, releasing the claim
// when fn fails.
type idempotencyGuard interface {
	Do(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context) error) (bool, error)
}

// Service turns outbox events into transactional emails.
type Service interface {
	OrderCreated(ctx context.Context, eventID uuid.UUID, event payloads.OrderCreatedEvent) error
}

type ServiceParams struct {
	Sender             Sender
	Idempotency        idempotencyGuard
	OperatorRecipients []string
	Logger             *logger.Logger
}

type service struct {
	sender    Sender
	guard     idempotencyGuard
	operators []string
	logg      *logger.Logger
}

// NewService wires the email notifier.
func NewService(params ServiceParams) (Service, error) {
	if params.Sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		sender:    params.Sender,
		guard:     params.Idempotency,
		operators: append([]string(nil), params.OperatorRecipients...),
		logg:      logg,
	}, nil
}

// OrderCreated sends the confirmation once per event id. A failed send
// releases the idempotency key so a later attempt can deliver it.
func (s *service) OrderCreated(ctx context.Context, eventID uuid.UUID, event payloads.OrderCreatedEvent) error {
	ctx = s.logg.WithOrderID(ctx, event.OrderID.String())
	ctx = s.logg.WithField(ctx, "event_id", eventID.String())

	email, err := ComposeOrderCreated(event, s.operators)
	if errors.Is(err, ErrNoRecipients) {
		s.logg.Warn(ctx, "order email skipped, no recipients configured")
		return nil
	}
	if err != nil {
		return err
	}

	var messageID string
	sent, err := s.guard.Do(ctx, eventID, func(ctx context.Context) error {
		id, err := s.sender.Send(ctx, email)
		if err != nil {
			return fmt.Errorf("send order email: %w", err)
		}
		messageID = id
		return nil
	})
	if err != nil {
		return err
	}
	if !sent {
		s.logg.Info(ctx, "order email already sent")
		return nil
	}

	s.logg.Info(s.logg.WithField(ctx, "message_id", messageID), "order email sent")
	return nil
}
