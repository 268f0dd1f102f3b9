package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/image-review/pkg/imagereview/messaging"
)

type subscription struct {
	filter  messaging.FilterPolicy
	queue   *Queue
	handler messaging.Handler
}

func (s subscription) deliver(ctx context.Context, body []byte, attrs map[string]string) error {
	if s.queue != nil {
		return s.queue.Enqueue(ctx, body, attrs)
	}
	return s.handler.HandleMessage(ctx, messaging.Envelope{
		ID:           uuid.NewString(),
		Body:         append([]byte(nil), body...),
		Attributes:   maps.Clone(attrs),
		ReceiveCount: 1,
	})
}

// Topic is an in-memory publish/subscribe topic. Subscriptions are static:
// bound once at wiring time, each with an optional filter policy evaluated
// before delivery, so non-matching subscribers never see the message.
type Topic struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewTopic creates an in-memory topic.
func NewTopic() *Topic {
	return &Topic{}
}

// Subscribe fans matching messages out into a queue.
func (t *Topic) Subscribe(q *Queue, filter messaging.FilterPolicy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, subscription{filter: filter, queue: q})
}

// SubscribeHandler invokes a handler directly for matching messages.
func (t *Topic) SubscribeHandler(h messaging.Handler, filter messaging.FilterPolicy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, subscription{filter: filter, handler: h})
}

// Publish delivers to every subscriber whose filter matches the attributes.
// Subscribers are independent: one delivery failure does not stop the
// others, and all failures are joined into the returned error.
func (t *Topic) Publish(ctx context.Context, body []byte, attrs map[string]string) error {
	t.mu.RLock()
	subs := make([]subscription, len(t.subs))
	copy(subs, t.subs)
	t.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if !sub.filter.Matches(attrs) {
			continue
		}
		if err := sub.deliver(ctx, body, attrs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
