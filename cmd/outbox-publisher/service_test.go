package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/courtside-app/courtside-backend/pkg/config"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	"github.com/courtside-app/courtside-backend/pkg/logger"
)

type stubRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
}

func (r *stubRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if len(r.events) > limit {
		return r.events[:limit], nil
	}
	return r.events, nil
}

func (r *stubRepo) MarkPublished(id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *stubRepo) MarkFailed(id uuid.UUID, err error) error {
	r.failed = append(r.failed, id)
	return nil
}

type stubResult struct {
	err error
}

func (r stubResult) Get(ctx context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

type stubPublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (p *stubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return stubResult{err: p.err}
}

func newTestService(t *testing.T, repo *stubRepo, factory publisherFactory) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:           &config.Config{},
		Logger:           logger.New(logger.Options{ServiceName: "test"}),
		Repository:       repo,
		PublisherFactory: factory,
	})
	require.NoError(t, err)
	return svc
}

func outboxEvent(eventType enums.OutboxEventType) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
	}
}

func TestProcessBatchRoutesByEventType(t *testing.T) {
	notifPub := &stubPublisher{}
	ordersPub := &stubPublisher{}
	factory := func(eventType enums.OutboxEventType) publisher {
		if eventType == enums.EventOrderCancelled || eventType == enums.EventOrderOverdue {
			return ordersPub
		}
		return notifPub
	}

	confirmed := outboxEvent(enums.EventPaymentConfirmed)
	cancelled := outboxEvent(enums.EventOrderCancelled)
	repo := &stubRepo{events: []models.OutboxEvent{confirmed, cancelled}}

	svc := newTestService(t, repo, factory)
	published, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, published)

	require.Len(t, notifPub.messages, 1)
	require.Len(t, ordersPub.messages, 1)
	require.Equal(t, "payment.confirmed", notifPub.messages[0].Attributes["event_type"])
	require.Equal(t, confirmed.AggregateID.String(), notifPub.messages[0].Attributes["aggregate_id"])
	require.Equal(t, []uuid.UUID{confirmed.ID, cancelled.ID}, repo.published)
	require.Empty(t, repo.failed)
}

func TestProcessBatchMarksFailureAndContinues(t *testing.T) {
	broken := &stubPublisher{err: errors.New("topic gone")}
	healthy := &stubPublisher{}
	factory := func(eventType enums.OutboxEventType) publisher {
		if eventType == enums.EventPaymentFailed {
			return broken
		}
		return healthy
	}

	failing := outboxEvent(enums.EventPaymentFailed)
	ok := outboxEvent(enums.EventRefundIssued)
	repo := &stubRepo{events: []models.OutboxEvent{failing, ok}}

	svc := newTestService(t, repo, factory)
	published, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, published)
	require.Equal(t, []uuid.UUID{failing.ID}, repo.failed)
	require.Equal(t, []uuid.UUID{ok.ID}, repo.published)
}

func TestProcessBatchFetchErrorPropagates(t *testing.T) {
	repo := &stubRepo{fetchErr: errors.New("db down")}
	svc := newTestService(t, repo, func(enums.OutboxEventType) publisher { return &stubPublisher{} })

	_, err := svc.processBatch(context.Background())
	require.Error(t, err)
}
