package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/magisurprise/backend/pkg/enums"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/outbox"
)

type processor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Worker pulls catalog events from Pub/Sub and hands them to a processor.
type Worker struct {
	subscription *gcppubsub.Subscriber
	processor    processor
	logg         *logger.Logger
}

func NewWorker(subscription *gcppubsub.Subscriber, p processor, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("catalog subscription is required")
	}
	if p == nil {
		return nil, errors.New("catalog processor is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Worker{subscription: subscription, processor: p, logg: logg}, nil
}

// Run receives messages until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if handle(innerCtx, w.processor, w.logg, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// handle reports whether the message should be redelivered. Malformed
// messages are acked since a redelivery cannot fix them.
func handle(ctx context.Context, p processor, logg *logger.Logger, msg *gcppubsub.Message) bool {
	logCtx := logg.WithField(ctx, "message_id", msg.ID)

	eventType, envelope, err := decodeMessage(msg)
	if err != nil {
		logg.Warn(logg.WithField(logCtx, "error", err.Error()), "invalid catalog message")
		return false
	}
	if err := p.Process(logCtx, eventType, envelope); err != nil {
		logg.Error(logCtx, "catalog message failed", err)
		return true
	}
	return false
}

func decodeMessage(msg *gcppubsub.Message) (enums.OutboxEventType, outbox.PayloadEnvelope, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return "", envelope, fmt.Errorf("decode payload envelope: %w", err)
	}
	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		return "", envelope, fmt.Errorf("event_type: %w", err)
	}
	if envelope.EventID == "" {
		envelope.EventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	return eventType, envelope, nil
}
