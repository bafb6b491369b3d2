// Package idempotency makes outbox consumers process each event once even
// though Pub/Sub and the publisher both deliver at least once.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/magisurprise/backend/pkg/redis"
)

// Consumer names a handler of outbox events. Each consumer keeps its own
// claims, so the order email and the catalog cache dedupe independently.
type Consumer string

const (
	ConsumerOrderEmail   Consumer = "order-email"
	ConsumerCatalogCache Consumer = "catalog-cache"
)

func (c Consumer) valid() bool {
	switch c {
	case ConsumerOrderEmail, ConsumerCatalogCache:
		return true
	}
	return false
}

// Guard claims event ids for one consumer with Redis SETNX. A claim lives
// for the TTL and stores when it was taken.
// Keys look like ms:idempotency:evt:<consumer>:<event_id>.
type Guard struct {
	store    redis.IdempotencyStore
	consumer Consumer
	ttl      time.Duration
	now      func() time.Time
}

func NewGuard(store redis.IdempotencyStore, consumer Consumer, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if !consumer.valid() {
		return nil, fmt.Errorf("unknown consumer %q", consumer)
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &Guard{store: store, consumer: consumer, ttl: ttl, now: time.Now}, nil
}

// Consumer reports who the guard claims for.
func (g *Guard) Consumer() Consumer { return g.consumer }

// Claim returns true when the caller is the first to see eventID and
// should process it.
func (g *Guard) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, g.now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s event %s: %w", g.consumer, eventID, err)
	}
	return claimed, nil
}

// Release drops a claim so a redelivery processes the event again.
func (g *Guard) Release(ctx context.Context, eventID uuid.UUID) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

// Do runs fn once per eventID. It reports false without calling fn when
// the event was already claimed. When fn fails the claim is released and
// a release failure is joined to fn's error.
func (g *Guard) Do(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context) error) (bool, error) {
	claimed, err := g.Claim(ctx, eventID)
	if err != nil || !claimed {
		return false, err
	}
	if err := fn(ctx); err != nil {
		if relErr := g.Release(context.WithoutCancel(ctx), eventID); relErr != nil {
			err = multierr.Append(err, fmt.Errorf("release claim: %w", relErr))
		}
		return true, err
	}
	return true, nil
}

func (g *Guard) key(eventID uuid.UUID) (string, error) {
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+string(g.consumer), eventID.String()), nil
}
