// Package usecase implements the outbox relay, the background task that
// delivers pending outbox records to the message broker.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orders/internal/broker"
	"github.com/allisson/orders/internal/database"
	"github.com/allisson/orders/internal/metrics"
	"github.com/allisson/orders/internal/outbox/domain"
)

const payloadContentType = "application/json"

// Config holds outbox relay configuration
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// OutboxRepository defines outbox record repository operations
type OutboxRepository interface {
	Create(ctx context.Context, record *domain.OutboxRecord) error
	ListUnprocessed(ctx context.Context, limit int) ([]*domain.OutboxRecord, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
}

// UseCase defines the interface for the outbox relay
type UseCase interface {
	Start(ctx context.Context) error
	ProcessRecords(ctx context.Context) error
}

// Relay scans the outbox for unprocessed records on a fixed interval,
// publishes each payload to the broker and marks it processed. Delivery is
// at least once: a crash between publish and mark leads to a re-publish on
// the next cycle, never to a lost record.
type Relay struct {
	config     Config
	txManager  database.TxManager
	outboxRepo OutboxRepository
	publisher  broker.Publisher
	metrics    metrics.RelayMetrics
	logger     *slog.Logger
}

// NewRelay creates a new Relay
func NewRelay(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxRepository,
	publisher broker.Publisher,
	relayMetrics metrics.RelayMetrics,
	logger *slog.Logger,
) *Relay {
	return &Relay{
		config:     config,
		txManager:  txManager,
		outboxRepo: outboxRepo,
		publisher:  publisher,
		metrics:    relayMetrics,
		logger:     logger,
	}
}

// Start runs the relay loop until the context is cancelled. Cycle errors are
// contained and logged: the loop itself never dies, failed records are
// retried on the next cycle.
func (r *Relay) Start(ctx context.Context) error {
	if r.logger != nil {
		r.logger.Info("starting outbox relay",
			slog.Duration("interval", r.config.Interval),
			slog.Int("batch_size", r.config.BatchSize),
		)
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if r.logger != nil {
				r.logger.Info("stopping outbox relay")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := r.ProcessRecords(ctx); err != nil {
				if r.logger != nil {
					r.logger.Error("failed to process outbox records", slog.Any("error", err))
				}
			}
		}
	}
}

// ProcessRecords runs one relay cycle: scan unprocessed records in insertion
// order, publish each one and mark it processed in its own transaction. The
// first publish failure ends the cycle; records already marked stay marked,
// everything after the failing record is retried on the next cycle.
func (r *Relay) ProcessRecords(ctx context.Context) error {
	started := time.Now()

	records, err := r.outboxRepo.ListUnprocessed(ctx, r.config.BatchSize)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return nil
	}

	if r.logger != nil {
		r.logger.Info("processing outbox records", slog.Int("count", len(records)))
	}

	for _, record := range records {
		// Honor cancellation between records; the in-flight record is never
		// abandoned halfway.
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.processRecord(ctx, record); err != nil {
			if r.logger != nil {
				r.logger.Error("failed to process outbox record",
					slog.String("record_id", record.ID.String()),
					slog.String("topic", record.Topic),
					slog.String("event_type", record.EventType),
					slog.Any("error", err),
				)
			}
			if r.metrics != nil {
				r.metrics.RecordFailed(ctx, record.Topic)
			}
			// Stop the cycle at the first failure so insertion order is kept
			// on retry. The failing record and everything after it stay
			// unprocessed and are picked up again next cycle.
			return err
		}

		if r.metrics != nil {
			r.metrics.RecordPublished(ctx, record.Topic)
		}
	}

	if r.metrics != nil {
		r.metrics.RecordCycleDuration(ctx, time.Since(started))
	}

	return nil
}

// processRecord publishes a single record and marks it processed. An empty
// payload has nothing to deliver and counts as already satisfied.
func (r *Relay) processRecord(ctx context.Context, record *domain.OutboxRecord) error {
	if record.Payload != "" {
		if err := r.publisher.Publish(ctx, record.Topic, []byte(record.Payload), payloadContentType); err != nil {
			return err
		}
	}

	// Mark in its own transaction, immediately after the confirmed publish.
	return r.txManager.WithTx(ctx, func(ctx context.Context) error {
		return r.outboxRepo.MarkProcessed(ctx, record.ID, time.Now())
	})
}
