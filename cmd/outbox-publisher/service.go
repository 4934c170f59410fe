package main

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/pkg/config"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	"github.com/courtside-app/courtside-backend/pkg/logger"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
)

type outboxRepository interface {
	FetchUnpublished(limit int, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// publisherFactory resolves the destination topic for an event type.
type publisherFactory func(eventType enums.OutboxEventType) publisher

type pubSubClient interface {
	NotificationPublisher() *gcppubsub.Publisher
	OrdersPublisher() *gcppubsub.Publisher
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	Repository       outboxRepository
	PubSub           pubSubClient
	PublisherFactory publisherFactory
}

// Service drains the outbox table into Pub/Sub. Events are published at
// least once; consumers dedupe on the envelope event id.
type Service struct {
	logg         *logger.Logger
	repo         outboxRepository
	publisherFor publisherFactory
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		if params.PubSub == nil {
			return nil, errors.New("pubsub client is required")
		}
		factory = defaultPublisherFactory(params.PubSub)
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:         params.Logger,
		repo:         params.Repository,
		publisherFor: factory,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.processBatch(ctx); err != nil {
				s.logg.Error(ctx, "outbox batch failed", err)
			}
		}
	}
}

// processBatch publishes one batch and returns how many events made it out.
// A single stuck event is marked failed and does not block the rest.
func (s *Service) processBatch(ctx context.Context) (int, error) {
	events, err := s.repo.FetchUnpublished(s.batchSize, s.maxAttempts)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, event := range events {
		if err := s.publishEvent(ctx, event); err != nil {
			evtCtx := s.logg.WithFields(ctx, map[string]any{
				"outbox_event_id": event.ID.String(),
				"event_type":      event.EventType,
			})
			s.logg.Error(evtCtx, "publishing outbox event", err)
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				s.logg.Error(evtCtx, "marking outbox event failed", markErr)
			}
			continue
		}
		if err := s.repo.MarkPublished(event.ID); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

func (s *Service) publishEvent(ctx context.Context, event models.OutboxEvent) error {
	pub := s.publisherFor(event.EventType)
	if pub == nil {
		return errors.New("no publisher for event type " + string(event.EventType))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
		},
	})
	_, err := result.Get(publishCtx)
	return err
}

type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.inner.Publish(ctx, msg)
}

// Order lifecycle events go to the orders topic, everything else feeds the
// notification pipeline. The worker consumes both subscriptions.
func defaultPublisherFactory(client pubSubClient) publisherFactory {
	return func(eventType enums.OutboxEventType) publisher {
		var inner *gcppubsub.Publisher
		switch eventType {
		case enums.EventOrderCancelled, enums.EventOrderOverdue:
			inner = client.OrdersPublisher()
		default:
			inner = client.NotificationPublisher()
		}
		if inner == nil {
			return nil
		}
		return gcpPublisher{inner: inner}
	}
}
