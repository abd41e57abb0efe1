// Package idempotency guards event consumers against redelivery. Pub/Sub
// is at-least-once, so every consumer marks an event as processed in
// Redis before applying side effects and clears the marker on failure.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vendora-labs/vendora-backend/pkg/redis"
)

// Manager marks event IDs as processed per consumer. Keys expire after
// the configured TTL, which bounds the dedupe window to the broker's
// practical redelivery horizon.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager wires the Redis-backed guard. A zero TTL means markers
// never expire.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMarkProcessed reports whether the consumer already handled the
// event. The first caller wins the SETNX and gets false, so it proceeds;
// later deliveries observe the marker and get true.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	won, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !won, nil
}

// Delete clears the processed marker so a failed handler can be retried
// on the next delivery.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) processedKey(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(fmt.Sprintf("evt:processed:%s", consumer), eventID.String()), nil
}
