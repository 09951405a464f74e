package application

import (
	"context"
	"fmt"
	"sort"

	"shopmetrics/internal/domain"
)

// WebhookHandler processes one webhook event. Implementations may fail;
// wrapping the error with Retryable asks for upstream redelivery.
type WebhookHandler interface {
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookHandlerFunc adapts a function to the WebhookHandler interface.
type WebhookHandlerFunc func(ctx context.Context, event *domain.WebhookEvent) error

func (f WebhookHandlerFunc) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	return f(ctx, event)
}

// HandlerDescriptor is one registry entry: the topic it serves, delivery
// metadata, and the processing callback. Compliance marks topics whose
// handling is legally mandated; their failures are durably recorded
// before the webhook is acknowledged.
type HandlerDescriptor struct {
	Topic          string
	DeliveryMethod string
	CallbackPath   string
	Compliance     bool
	Handler        WebhookHandler
}

// WebhookRegistry is the immutable topic -> descriptor map. It is built
// once at process start and passed by reference into the dispatcher;
// nothing mutates it afterwards, so no synchronization is needed.
type WebhookRegistry struct {
	descriptors map[string]HandlerDescriptor
}

// NewWebhookRegistry builds the registry. Registering the same topic
// twice or a descriptor without a handler is a construction error.
func NewWebhookRegistry(descriptors ...HandlerDescriptor) (*WebhookRegistry, error) {
	m := make(map[string]HandlerDescriptor, len(descriptors))
	for _, d := range descriptors {
		if d.Topic == "" {
			return nil, fmt.Errorf("webhook registry: descriptor without topic")
		}
		if d.Handler == nil {
			return nil, fmt.Errorf("webhook registry: topic %s has no handler", d.Topic)
		}
		if _, exists := m[d.Topic]; exists {
			return nil, fmt.Errorf("webhook registry: topic %s registered twice", d.Topic)
		}
		if d.DeliveryMethod == "" {
			d.DeliveryMethod = "http"
		}
		m[d.Topic] = d
	}
	return &WebhookRegistry{descriptors: m}, nil
}

// Lookup returns the descriptor for a topic.
func (r *WebhookRegistry) Lookup(topic string) (HandlerDescriptor, bool) {
	d, ok := r.descriptors[topic]
	return d, ok
}

// Topics returns the registered topics in stable order, used when
// subscribing the app's webhooks with Shopify.
func (r *WebhookRegistry) Topics() []string {
	topics := make([]string, 0, len(r.descriptors))
	for topic := range r.descriptors {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
