package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/pkg/config"
	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"github.com/vendora-labs/vendora-backend/pkg/outbox"
	"github.com/vendora-labs/vendora-backend/pkg/outbox/payloads"
	"github.com/vendora-labs/vendora-backend/pkg/outbox/registry"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &recordingRepo{
		events: []models.OutboxEvent{
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderItemSettled,
				AggregateType: enums.AggregateOrderItem,
				AggregateID:   uuid.New(),
				Payload:       envelopePayload(t, "event-one"),
			},
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderItemSettled,
				AggregateType: enums.AggregateOrderItem,
				AggregateID:   uuid.New(),
				Payload:       envelopePayload(t, "event-two"),
			},
		},
	}
	pub := &scriptedPublisher{
		results: []publishResult{
			scriptedResult{err: errors.New("transient")},
			scriptedResult{},
		},
	}
	resolved := &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "ledger-topic",
			AggregateType: enums.AggregateOrderItem,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.OrderItemSettledEvent{},
	}
	eventRegistry := &staticRegistry{resolved: resolved}
	dlqRepo := &recordingDLQ{}
	service := newTestService(t, repo, pub, eventRegistry, dlqRepo, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("batch should report work done")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("failed rows = %d, want 1", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("published rows = %d, want 1", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatal("wrong event marked failed")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatal("wrong event marked published")
	}
}

func TestServiceProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPaymentVerified,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       envelopePayload(t, "nonretryable"),
	}
	repo := &recordingRepo{events: []models.OutboxEvent{event}}
	registry := &staticRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlqRepo := &recordingDLQ{}
	service := newTestService(t, repo, &scriptedPublisher{}, registry, dlqRepo, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("batch should report work done")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("dlq entries = %d, want 1", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event id = %s", entry.EventID)
	}
	if entry.Payload == nil || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatal("dlq entry must carry the original payload")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("error reason = %s", entry.ErrorReason)
	}
}

func TestServiceProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventWithdrawalRequested,
		AggregateType: enums.AggregateWithdrawal,
		AggregateID:   uuid.New(),
		Payload:       envelopePayload(t, "max-attempts"),
		AttemptCount:  1,
	}
	repo := &recordingRepo{events: []models.OutboxEvent{event}}
	pub := &scriptedPublisher{
		results: []publishResult{
			scriptedResult{err: errors.New("transient")},
		},
	}
	resolved := &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "ledger-topic",
			AggregateType: enums.AggregateWithdrawal,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    event.ID.String(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.WithdrawalRequestedEvent{},
	}
	registry := &staticRegistry{resolved: resolved}
	dlqRepo := &recordingDLQ{}
	service := newTestService(t, repo, pub, registry, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("batch should report work done")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("dlq entries = %d, want 1", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event id = %s", entry.EventID)
	}
	if entry.ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("error reason = %s", entry.ErrorReason)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, registry registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	cfg := &config.Config{
		Outbox: outboxCfg,
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logg,
		DB:               &noopDB{},
		PubSub:           &noopPubSub{},
		Repository:       repo,
		Registry:         registry,
		PublisherFactory: func(_ string) publisher { return pub },
		DLQRepository:    dlq,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func envelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type recordingRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *recordingRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *recordingRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *recordingRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *recordingRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.failed = append(f.failed, id)
	return nil
}

type noopDB struct{}

func (f *noopDB) Ping(context.Context) error {
	return nil
}

func (f *noopDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type noopPubSub struct{}

func (f *noopPubSub) Ping(context.Context) error {
	return nil
}

func (f *noopPubSub) Publisher(name string) *gcppubsub.Publisher {
	return nil
}

type scriptedPublisher struct {
	results []publishResult
}

func (f *scriptedPublisher) Publish(context.Context, *gcppubsub.Message) publishResult {
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type scriptedResult struct {
	err error
}

func (f scriptedResult) Get(context.Context) (string, error) {
	return "", f.err
}

type staticRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *staticRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type recordingDLQ struct {
	entries []models.OutboxDLQ
}

func (f *recordingDLQ) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
