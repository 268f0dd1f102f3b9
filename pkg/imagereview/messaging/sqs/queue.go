// Package sqs provides an Amazon SQS implementation of the messaging.Queue
// interface.
package sqs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/tendant/image-review/pkg/imagereview/messaging"
)

// SQS caps long-poll waits at 20 seconds.
const maxWaitTime = 20 * time.Second

// Config options for the SQS queue.
type Config struct {
	// QueueURL is the source queue.
	QueueURL string

	// DeadLetterQueueURL receives explicitly dead-lettered messages. The
	// queue's own redrive policy (maxReceiveCount) handles budget-exhausted
	// messages broker-side; this URL is only needed for the dispatcher's
	// immediate dead-letter path.
	DeadLetterQueueURL string
}

// Queue is an SQS-backed messaging.Queue. Topic subscriptions feeding the
// queue must use raw message delivery so payloads and message attributes
// arrive unwrapped.
type Queue struct {
	client *sqs.Client
	config Config
}

// New creates an SQS queue binding.
func New(client *sqs.Client, config Config) (*Queue, error) {
	if config.QueueURL == "" {
		return nil, fmt.Errorf("queue URL is required")
	}
	return &Queue{client: client, config: config}, nil
}

// Enqueue sends a message with the given attributes.
func (q *Queue) Enqueue(ctx context.Context, body []byte, attrs map[string]string) error {
	return q.send(ctx, q.config.QueueURL, body, attrs)
}

func (q *Queue) send(ctx context.Context, queueURL string, body []byte, attrs map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	}
	if len(attrs) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}
	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Receive long-polls for up to max messages.
func (q *Queue) Receive(ctx context.Context, max int, wait time.Duration) ([]messaging.Envelope, error) {
	if wait > maxWaitTime {
		wait = maxWaitTime
	}
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(q.config.QueueURL),
		MaxNumberOfMessages:   int32(max),
		WaitTimeSeconds:       int32(wait / time.Second),
		MessageAttributeNames: []string{"All"},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	envs := make([]messaging.Envelope, 0, len(out.Messages))
	for _, m := range out.Messages {
		env := messaging.Envelope{
			ID:      aws.ToString(m.MessageId),
			Body:    []byte(aws.ToString(m.Body)),
			Receipt: aws.ToString(m.ReceiptHandle),
		}
		if len(m.MessageAttributes) > 0 {
			env.Attributes = make(map[string]string, len(m.MessageAttributes))
			for k, v := range m.MessageAttributes {
				env.Attributes[k] = aws.ToString(v.StringValue)
			}
		}
		if rc, ok := m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]; ok {
			env.ReceiveCount, _ = strconv.Atoi(rc)
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// Ack deletes the message from the queue.
func (q *Queue) Ack(ctx context.Context, env messaging.Envelope) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.config.QueueURL),
		ReceiptHandle: aws.String(env.Receipt),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// DeadLetter copies the message to the dead-letter queue and deletes it from
// the source queue.
func (q *Queue) DeadLetter(ctx context.Context, env messaging.Envelope) error {
	if q.config.DeadLetterQueueURL == "" {
		return messaging.ErrNoDeadLetterQueue
	}
	if err := q.send(ctx, q.config.DeadLetterQueueURL, env.Body, env.Attributes); err != nil {
		return err
	}
	return q.Ack(ctx, env)
}
