package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubPublisher_Publish(t *testing.T) {
	ctx := context.Background()

	publisher := NewPubSubPublisher("mem://")
	defer func() {
		require.NoError(t, publisher.Shutdown(ctx))
	}()

	err := publisher.Publish(ctx, "orders", []byte(`{"order_id":"1"}`), "application/json")
	assert.NoError(t, err)
}

func TestPubSubPublisher_TopicCache(t *testing.T) {
	ctx := context.Background()

	publisher := NewPubSubPublisher("mem://")
	defer func() {
		require.NoError(t, publisher.Shutdown(ctx))
	}()

	first, err := publisher.topic(ctx, "orders")
	require.NoError(t, err)

	second, err := publisher.topic(ctx, "orders")
	require.NoError(t, err)

	// Same topic name reuses the opened topic
	assert.Same(t, first, second)

	other, err := publisher.topic(ctx, "refunds")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestPubSubPublisher_InvalidScheme(t *testing.T) {
	publisher := NewPubSubPublisher("bogus://")

	err := publisher.Publish(context.Background(), "orders", []byte("payload"), "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open topic")
}

func TestPubSubPublisher_Shutdown(t *testing.T) {
	ctx := context.Background()

	publisher := NewPubSubPublisher("mem://")

	_, err := publisher.topic(ctx, "orders")
	require.NoError(t, err)

	require.NoError(t, publisher.Shutdown(ctx))

	// Shutdown empties the cache; a later publish reopens the topic
	assert.Empty(t, publisher.topics)
}
