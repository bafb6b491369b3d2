package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/magisurprise/backend/internal/catalogcache"
	"github.com/magisurprise/backend/pkg/enums"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/outbox"
)

type refresher interface {
	Refresh(ctx context.Context, c catalogcache.Collection) ([]catalogcache.Entry, error)
}

type idempotencyGuard interface {
	Do(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context) error) (bool, error)
}

// Consumer rebuilds the storefront catalog snapshots when a catalog event
// lands, so edits show up before the snapshot TTL runs out.
type Consumer struct {
	catalog refresher
	guard   idempotencyGuard
	logg    *logger.Logger
}

func NewConsumer(catalog refresher, guard idempotencyGuard, logg *logger.Logger) (*Consumer, error) {
	if catalog == nil {
		return nil, errors.New("catalog service required")
	}
	if guard == nil {
		return nil, errors.New("idempotency guard required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Consumer{catalog: catalog, guard: guard, logg: logg}, nil
}

// CollectionsFor maps a catalog event to the snapshots it invalidates.
// Non-catalog events map to nothing.
func CollectionsFor(eventType enums.OutboxEventType) []catalogcache.Collection {
	switch eventType {
	case enums.EventCatalogProductUpserted, enums.EventCatalogProductDeleted:
		return []catalogcache.Collection{catalogcache.CollectionProducts}
	case enums.EventCatalogNegocioUpdated:
		return catalogcache.Collections()
	}
	return nil
}

// Process refreshes the affected collections once per event id. A failed
// refresh releases the idempotency key so a redelivery can retry.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})
	if negocioID := negocioOf(envelope.Data); negocioID != "" {
		logCtx = c.logg.WithNegocioID(logCtx, negocioID)
	}

	collections := CollectionsFor(eventType)
	if len(collections) == 0 {
		c.logg.Info(logCtx, "event not handled by catalog consumer")
		return nil
	}

	eventID, err := uuid.Parse(strings.TrimSpace(envelope.EventID))
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	refreshed, err := c.guard.Do(logCtx, eventID, func(ctx context.Context) error {
		var errs error
		for _, collection := range collections {
			if _, err := c.catalog.Refresh(ctx, collection); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("refresh %s: %w", collection, err))
			}
		}
		return errs
	})
	if err != nil {
		c.logg.Error(logCtx, "catalog refresh failed", err)
		return err
	}
	if !refreshed {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	c.logg.Info(logCtx, "catalog snapshots refreshed")
	return nil
}

func negocioOf(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var ref struct {
		NegocioID string `json:"negocio_id"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return ""
	}
	return ref.NegocioID
}
