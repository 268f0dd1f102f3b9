// Package sns provides an Amazon SNS implementation of the messaging.Topic
// interface. Attribute filtering happens broker-side: each subscription
// carries its filter policy, configured at deployment time, so non-matching
// subscribers never receive the message.
package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Topic is an SNS-backed messaging.Topic.
type Topic struct {
	client *sns.Client
	arn    string
}

// New creates an SNS topic binding.
func New(client *sns.Client, topicARN string) (*Topic, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("topic ARN is required")
	}
	return &Topic{client: client, arn: topicARN}, nil
}

// Publish fans the message out with the given message attributes.
func (t *Topic) Publish(ctx context.Context, body []byte, attrs map[string]string) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(t.arn),
		Message:  aws.String(string(body)),
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
	if _, err := t.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
