// Package outbox stores order events next to the change they describe and
// relays them to Kafka from the worker.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/metrics"
	"github.com/Domenick1991/flightorders/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Enqueue writes event to the outbox. Call it with the ctx of the
// transaction that performs the change.
func Enqueue(ctx context.Context, repo repository.OutboxRepository, event domain.OrderEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}
	return repo.Create(ctx, &domain.OutboxEvent{
		ID:        event.ID,
		EventType: event.Type,
		Key:       event.Key(),
		Payload:   payload,
	})
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

type Relay struct {
	repo        repository.OutboxRepository
	publisher   Publisher
	topic       string
	interval    time.Duration
	batchSize   int
	sendTimeout time.Duration
	lease       time.Duration
}

type RelayOption func(*Relay)

// WithLease sets how long a claimed event may stay unacknowledged before
// another relay picks it up again.
func WithLease(lease time.Duration) RelayOption {
	return func(r *Relay) {
		if lease > 0 {
			r.lease = lease
		}
	}
}

func NewRelay(repo repository.OutboxRepository, publisher Publisher, topic string, interval time.Duration, batchSize int, opts ...RelayOption) *Relay {
	relay := &Relay{
		repo:        repo,
		publisher:   publisher,
		topic:       topic,
		interval:    interval,
		batchSize:   batchSize,
		sendTimeout: 5 * time.Second,
		lease:       time.Minute,
	}
	for _, opt := range opts {
		opt(relay)
	}
	return relay
}

func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.WithField("topic", r.topic).Info("outbox relay started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil {
				log.WithError(err).Error("outbox batch failed")
			}
		}
	}
}

// ProcessBatch publishes one claimed batch and returns how many events went
// out. Events that failed to publish go back to the queue.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	events, err := r.repo.FetchBatch(ctx, r.batchSize, r.lease)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	var processedIDs, failedIDs []string
	for _, e := range events {
		sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		err := r.publisher.Publish(sendCtx, r.topic, e.Key, json.RawMessage(e.Payload))
		cancel()

		if err != nil {
			log.WithError(err).WithField("event_id", e.ID).Warn("publish outbox event")
			metrics.OutboxPublishErrors.Inc()
			failedIDs = append(failedIDs, e.ID)
			continue
		}
		metrics.OutboxPublished.Inc()
		processedIDs = append(processedIDs, e.ID)
	}

	if len(processedIDs) > 0 {
		if err := r.repo.MarkProcessed(ctx, processedIDs); err != nil {
			return 0, err
		}
	}
	if len(failedIDs) > 0 {
		if err := r.repo.MarkFailed(ctx, failedIDs); err != nil {
			log.WithError(err).Error("return failed outbox events")
		}
	}
	return len(processedIDs), nil
}
