package messaging

import (
	"context"
	"time"
)

// Envelope carries one in-flight message: an opaque payload plus named
// string attributes used for filter evaluation. Attributes are provider
// metadata and are inspectable without deserializing the body.
type Envelope struct {
	// ID is the provider-assigned message identity.
	ID string

	// Body is the message payload.
	Body []byte

	// Attributes are the named string attributes attached at publish time.
	Attributes map[string]string

	// ReceiveCount is the number of times this message has been delivered,
	// including the current delivery. Approximate on cloud backends.
	ReceiveCount int

	// Receipt is the opaque per-delivery handle used to acknowledge the
	// message.
	Receipt string
}

// Attribute returns the named attribute, or "" when absent.
func (e Envelope) Attribute(name string) string {
	return e.Attributes[name]
}

// Queue is a point-to-point queue with at-least-once delivery.
type Queue interface {
	// Enqueue appends a message.
	Enqueue(ctx context.Context, body []byte, attrs map[string]string) error

	// Receive returns up to max messages, waiting up to wait for at least
	// one to become available. Received messages are invisible to other
	// receivers until acknowledged or the visibility window lapses.
	Receive(ctx context.Context, max int, wait time.Duration) ([]Envelope, error)

	// Ack permanently removes a received message.
	Ack(ctx context.Context, env Envelope) error

	// DeadLetter moves a received message to the designated dead-letter
	// queue and removes it from this queue.
	DeadLetter(ctx context.Context, env Envelope) error
}

// Topic is a publish/subscribe topic. Fan-out and attribute filtering happen
// at the broker boundary: subscribers whose filter policy does not match
// never receive the message.
type Topic interface {
	Publish(ctx context.Context, body []byte, attrs map[string]string) error
}

// Handler processes one delivered message. See the package documentation for
// the outcome contract.
type Handler interface {
	HandleMessage(ctx context.Context, env Envelope) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, env Envelope) error

func (f HandlerFunc) HandleMessage(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}
