package redis

import (
	"context"
	"errors"
	"time"
)

// DedupeGuard tracks processed event ids with SETNX and a TTL so a
// redelivered webhook does not append a second queue record.
type DedupeGuard struct {
	store DedupeStore
	ttl   time.Duration
}

func NewDedupeGuard(store DedupeStore, ttl time.Duration) (*DedupeGuard, error) {
	if store == nil {
		return nil, errors.New("dedupe store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &DedupeGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true when the event id was already seen, otherwise
// marks it as seen for the configured TTL.
func (g *DedupeGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.DedupeKey(eventID), "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete forgets an event id so a failed handling attempt can be retried by
// the sender.
func (g *DedupeGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.DedupeKey(eventID))
}
