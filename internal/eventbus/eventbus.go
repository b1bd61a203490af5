// Package eventbus defines the event publishing port used by the order write
// path. Two strategies implement it: direct broker publishing, and staging the
// event into a Dapr state store whose own outbox integration forwards it.
package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	dapr "github.com/dapr/go-sdk/client"

	"github.com/allisson/orders/internal/broker"
	apperrors "github.com/allisson/orders/internal/errors"
)

// Strategy names accepted by the configuration.
const (
	StrategyDirect = "direct"
	StrategyStaged = "staged"
)

const jsonContentType = "application/json"

// EventBus publishes an event under a key. Implementations decide whether the
// publish goes straight to the broker or is staged through a durable store.
type EventBus interface {
	Publish(ctx context.Context, key string, event any) error
}

// DirectEventBus publishes events immediately to the broker. It provides no
// outbox guarantee and exists as the simple non-transactional path.
type DirectEventBus struct {
	publisher broker.Publisher
	topic     string
}

// NewDirectEventBus creates an EventBus that publishes straight to the broker topic.
func NewDirectEventBus(publisher broker.Publisher, topic string) *DirectEventBus {
	return &DirectEventBus{
		publisher: publisher,
		topic:     topic,
	}
}

// Publish marshals the event and sends it to the broker immediately.
func (b *DirectEventBus) Publish(ctx context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event")
	}

	return b.publisher.Publish(ctx, b.topic, payload, jsonContentType)
}

// stateTransactor is the slice of the Dapr client the staged bus needs.
type stateTransactor interface {
	ExecuteStateTransaction(ctx context.Context, storeName string, meta map[string]string, ops []*dapr.StateOperation) error
}

// DaprEventBus stages events as upserts into a Dapr state store, keyed by the
// event key, with a short TTL. The state store's transactional outbox
// integration is responsible for forwarding the value to the broker.
type DaprEventBus struct {
	client    stateTransactor
	storeName string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewDaprEventBus creates an EventBus that stages publishes into the named state store.
func NewDaprEventBus(client stateTransactor, storeName string, ttl time.Duration, logger *slog.Logger) *DaprEventBus {
	return &DaprEventBus{
		client:    client,
		storeName: storeName,
		ttl:       ttl,
		logger:    logger,
	}
}

// Publish writes the event as a single upsert operation in a state transaction.
// A staging failure propagates to the caller, which is expected to abort its
// own transaction.
func (b *DaprEventBus) Publish(ctx context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event")
	}

	ops := []*dapr.StateOperation{
		{
			Type: dapr.StateOperationTypeUpsert,
			Item: &dapr.SetStateItem{
				Key:   key,
				Value: payload,
				Metadata: map[string]string{
					"ttlInSeconds":    strconv.Itoa(int(b.ttl.Seconds())),
					"datacontenttype": jsonContentType,
				},
			},
		},
	}

	if err := b.client.ExecuteStateTransaction(ctx, b.storeName, nil, ops); err != nil {
		if b.logger != nil {
			b.logger.Error("failed to execute state transaction",
				slog.String("store_name", b.storeName),
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
		return apperrors.Wrap(err, "failed to stage event")
	}

	return nil
}
