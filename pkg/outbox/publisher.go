package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retail-platform/inventory-engine/pkg/kafka"
	"github.com/retail-platform/inventory-engine/pkg/logging"
	"github.com/retail-platform/inventory-engine/pkg/metrics"
)

// Publisher drains the outbox to Kafka. Delivery is at-least-once; consumers
// must tolerate duplicates.
type Publisher struct {
	repo      Repository
	producer  *kafka.Producer
	logger    *logging.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// PublisherConfig holds configuration for the outbox publisher
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: 1 * time.Second,
		BatchSize:    100,
	}
}

// NewPublisher creates a new outbox publisher
func NewPublisher(repo Repository, producer *kafka.Producer, logger *logging.Logger, m *metrics.Metrics, config *PublisherConfig) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}

	return &Publisher{
		repo:      repo,
		producer:  producer,
		logger:    logger,
		metrics:   m,
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start starts the publisher loop
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher already running")
	}
	p.running = true
	p.mu.Unlock()

	p.logger.Info("Starting outbox publisher", "interval", p.interval, "batchSize", p.batchSize)

	go p.run(ctx)
	return nil
}

// Stop stops the publisher loop and waits for it to drain
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher not running")
	}
	p.mu.Unlock()

	close(p.stopCh)
	<-p.stoppedCh

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("Outbox publisher stopped")
	return nil
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.stoppedCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.publishBatch(ctx)
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) {
	events, err := p.repo.FetchPending(ctx, p.batchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to fetch pending outbox events")
		return
	}

	for _, event := range events {
		if err := p.producer.Publish(ctx, event.Topic, event.AggregateID, event.EventType, event.Payload); err != nil {
			p.logger.WithError(err).Warn("Failed to publish outbox event",
				"eventId", event.ID, "eventType", event.EventType)
			if markErr := p.repo.MarkFailed(ctx, event.ID, err); markErr != nil {
				p.logger.WithError(markErr).Error("Failed to record outbox publish failure", "eventId", event.ID)
			}
			if p.metrics != nil {
				p.metrics.OutboxEventsPublished.WithLabelValues(event.Topic, "error").Inc()
			}
			continue
		}

		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			// The event will be re-published on the next poll; consumers
			// must already handle duplicates.
			p.logger.WithError(err).Error("Failed to mark outbox event published", "eventId", event.ID)
			continue
		}

		if p.metrics != nil {
			p.metrics.OutboxEventsPublished.WithLabelValues(event.Topic, "ok").Inc()
		}
	}
}
