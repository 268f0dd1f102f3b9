// Package memory provides in-memory implementations of the messaging
// primitives with the same delivery semantics as the cloud backends:
// visibility-timeout redelivery, receive budgets with dead-letter redrive,
// and broker-side attribute filtering.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/image-review/pkg/imagereview/messaging"
)

const (
	defaultVisibility = 30 * time.Second
	defaultMaxReceive = 3
	pollInterval      = 10 * time.Millisecond
)

type queued struct {
	id           string
	body         []byte
	attrs        map[string]string
	receiveCount int
	visibleAt    time.Time
	receipt      string
}

// Queue is an in-memory point-to-point queue. A receive leases messages for
// the visibility window; unacknowledged messages become visible again and
// are redelivered. Once a message has been received maxReceive times without
// an ack, the next attempt moves it to the dead-letter queue instead.
type Queue struct {
	mu         sync.Mutex
	messages   []*queued
	visibility time.Duration
	maxReceive int
	dlq        *Queue
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithVisibilityTimeout sets the lease duration for received messages.
func WithVisibilityTimeout(d time.Duration) QueueOption {
	return func(q *Queue) { q.visibility = d }
}

// WithMaxReceiveCount sets how many deliveries a message gets before redrive
// to the dead-letter queue.
func WithMaxReceiveCount(n int) QueueOption {
	return func(q *Queue) { q.maxReceive = n }
}

// WithDeadLetterQueue links the queue messages overflow into.
func WithDeadLetterQueue(dlq *Queue) QueueOption {
	return func(q *Queue) { q.dlq = dlq }
}

// NewQueue creates an in-memory queue.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		visibility: defaultVisibility,
		maxReceive: defaultMaxReceive,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a message.
func (q *Queue) Enqueue(ctx context.Context, body []byte, attrs map[string]string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.messages = append(q.messages, &queued{
		id:    uuid.NewString(),
		body:  append([]byte(nil), body...),
		attrs: maps.Clone(attrs),
	})
	return nil
}

// Receive returns up to max visible messages, waiting up to wait for at
// least one.
func (q *Queue) Receive(ctx context.Context, max int, wait time.Duration) ([]messaging.Envelope, error) {
	deadline := time.Now().Add(wait)
	for {
		envs := q.collect(max)
		if len(envs) > 0 {
			return envs, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (q *Queue) collect(max int) []messaging.Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var envs []messaging.Envelope
	kept := q.messages[:0]
	for _, m := range q.messages {
		if len(envs) >= max || now.Before(m.visibleAt) {
			kept = append(kept, m)
			continue
		}
		if m.receiveCount >= q.maxReceive && q.dlq != nil {
			// Receive budget exhausted: redrive instead of redelivering.
			q.dlq.redrive(m)
			continue
		}
		m.receiveCount++
		m.visibleAt = now.Add(q.visibility)
		m.receipt = uuid.NewString()
		envs = append(envs, messaging.Envelope{
			ID:           m.id,
			Body:         append([]byte(nil), m.body...),
			Attributes:   maps.Clone(m.attrs),
			ReceiveCount: m.receiveCount,
			Receipt:      m.receipt,
		})
		kept = append(kept, m)
	}
	q.messages = kept
	return envs
}

func (q *Queue) redrive(m *queued) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.messages = append(q.messages, &queued{
		id:    m.id,
		body:  m.body,
		attrs: m.attrs,
	})
}

// Ack removes the message identified by the envelope's receipt.
func (q *Queue) Ack(ctx context.Context, env messaging.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, m := range q.messages {
		if m.receipt == env.Receipt {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			return nil
		}
	}
	return messaging.ErrUnknownReceipt
}

// DeadLetter moves the message identified by the envelope's receipt to the
// dead-letter queue.
func (q *Queue) DeadLetter(ctx context.Context, env messaging.Envelope) error {
	if q.dlq == nil {
		return messaging.ErrNoDeadLetterQueue
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for i, m := range q.messages {
		if m.receipt == env.Receipt {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			q.dlq.redrive(m)
			return nil
		}
	}
	return messaging.ErrUnknownReceipt
}

// Len reports the number of messages in the queue, visible or not.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}
