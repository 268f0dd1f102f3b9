package messaging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tendant/image-review/pkg/imagereview/metrics"
)

const (
	defaultBatchSize      = 10
	defaultWaitTime       = 20 * time.Second
	defaultHandlerTimeout = 10 * time.Second
)

// Dispatcher drives one worker from one queue. It receives batches, invokes
// the handler once per message, and maps the outcome to a queue action:
// ack, dead-letter, or leave for redelivery. Items in a batch are processed
// independently; one item's failure never blocks its siblings.
type Dispatcher struct {
	name    string
	queue   Queue
	handler Handler

	log            *slog.Logger
	batchSize      int
	waitTime       time.Duration
	handlerTimeout time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

// WithBatchSize sets the maximum number of messages per receive.
func WithBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) { d.batchSize = n }
}

// WithWaitTime sets the long-poll wait per receive.
func WithWaitTime(wait time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.waitTime = wait }
}

// WithHandlerTimeout sets the per-message handler deadline. Exceeding it is
// a retryable failure, never a success.
func WithHandlerTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.handlerTimeout = timeout }
}

// NewDispatcher creates a dispatcher binding a handler to a queue. The name
// labels log lines and metrics.
func NewDispatcher(name string, queue Queue, handler Handler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		name:           name,
		queue:          queue,
		handler:        handler,
		log:            slog.Default(),
		batchSize:      defaultBatchSize,
		waitTime:       defaultWaitTime,
		handlerTimeout: defaultHandlerTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run polls the queue until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		if err := d.Poll(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			d.log.Error("receive failed", "worker", d.name, "error", err)

			// Back off briefly so a broken queue does not spin the loop.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// Poll performs one receive round and processes every message in it.
func (d *Dispatcher) Poll(ctx context.Context) error {
	envs, err := d.queue.Receive(ctx, d.batchSize, d.waitTime)
	if err != nil {
		return err
	}
	for _, env := range envs {
		d.process(ctx, env)
	}
	return nil
}

func (d *Dispatcher) process(ctx context.Context, env Envelope) {
	hctx, cancel := context.WithTimeout(ctx, d.handlerTimeout)
	err := d.handler.HandleMessage(hctx, env)
	cancel()

	switch {
	case err == nil:
		if ackErr := d.queue.Ack(ctx, env); ackErr != nil {
			// The message will be redelivered; the handler must be
			// idempotent anyway.
			d.log.Warn("ack failed", "worker", d.name, "message_id", env.ID, "error", ackErr)
			metrics.MessagesProcessed.WithLabelValues(d.name, metrics.OutcomeAckFailed).Inc()
			return
		}
		metrics.MessagesProcessed.WithLabelValues(d.name, metrics.OutcomeOK).Inc()
	case IsTerminal(err):
		d.log.Error("terminal failure, dead-lettering",
			"worker", d.name, "message_id", env.ID, "error", err)
		if dlErr := d.queue.DeadLetter(ctx, env); dlErr != nil {
			d.log.Error("dead-letter failed", "worker", d.name, "message_id", env.ID, "error", dlErr)
			return
		}
		metrics.MessagesProcessed.WithLabelValues(d.name, metrics.OutcomeDeadLetter).Inc()
	default:
		// Transient: leave unacknowledged, the visibility window redelivers.
		d.log.Warn("retryable failure",
			"worker", d.name, "message_id", env.ID,
			"receive_count", env.ReceiveCount, "error", err)
		metrics.MessagesProcessed.WithLabelValues(d.name, metrics.OutcomeRetry).Inc()
	}
}
