// Package broker provides the message broker boundary used by the outbox relay
// and the direct event bus. Topics are opened through gocloud.dev/pubsub, so the
// concrete broker is selected by the configured URL prefix.
package broker

import (
	"context"
	"fmt"
	"sync"

	"gocloud.dev/pubsub"

	// Register pubsub drivers
	_ "gocloud.dev/pubsub/awssnssqs"
	_ "gocloud.dev/pubsub/gcppubsub"
	_ "gocloud.dev/pubsub/kafkapubsub"
	_ "gocloud.dev/pubsub/mempubsub"
	_ "gocloud.dev/pubsub/rabbitpubsub"
)

// Publisher defines the publish operation against the message broker.
type Publisher interface {
	// Publish sends the payload to the given topic. The content type travels as
	// message metadata for brokers that support it.
	Publish(ctx context.Context, topic string, payload []byte, contentType string) error
}

// PubSubPublisher implements Publisher on top of gocloud.dev/pubsub.
// Topics are opened lazily under the configured URL prefix
// (e.g., "mem://", "rabbit://", "kafka://") and cached for reuse.
type PubSubPublisher struct {
	urlPrefix string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubSubPublisher creates a new PubSubPublisher for the given URL prefix.
func NewPubSubPublisher(urlPrefix string) *PubSubPublisher {
	return &PubSubPublisher{
		urlPrefix: urlPrefix,
		topics:    make(map[string]*pubsub.Topic),
	}
}

// Publish sends the payload to the broker topic, opening the topic on first use.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, payload []byte, contentType string) error {
	t, err := p.topic(ctx, topic)
	if err != nil {
		return err
	}

	msg := &pubsub.Message{
		Body: payload,
	}
	if contentType != "" {
		msg.Metadata = map[string]string{"datacontenttype": contentType}
	}

	if err := t.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	return nil
}

// topic returns the cached pubsub topic for the given name, opening it if needed.
func (p *PubSubPublisher) topic(ctx context.Context, name string) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.topics[name]; ok {
		return t, nil
	}

	t, err := pubsub.OpenTopic(ctx, p.urlPrefix+name)
	if err != nil {
		return nil, fmt.Errorf("failed to open topic %s: %w", name, err)
	}

	p.topics[name] = t
	return t, nil
}

// Shutdown closes all opened topics.
func (p *PubSubPublisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for name, t := range p.topics {
		if err := t.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to shutdown topic %s: %w", name, err)
		}
		delete(p.topics, name)
	}

	return firstErr
}
