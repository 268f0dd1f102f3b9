// Package dynamo provides a DynamoDB implementation of the
// imagereview.RecordStore interface. The table uses the image's object key
// as its partition key ("id"); all other attributes are strings set
// field-by-field through update expressions.
package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tendant/image-review/pkg/imagereview"
)

// Store implements imagereview.RecordStore backed by a DynamoDB table.
type Store struct {
	client *dynamodb.Client
	table  string
}

// New creates a DynamoDB record store.
func New(client *dynamodb.Client, table string) (*Store, error) {
	if table == "" {
		return nil, fmt.Errorf("table name is required")
	}
	return &Store{client: client, table: table}, nil
}

// Put writes a record unconditionally.
func (s *Store) Put(ctx context.Context, record *imagereview.ImageRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// UpdateFields sets the named fields in a single UpdateItem call. DynamoDB
// creates the item when it does not exist, so updates never race record
// creation. Field names go through expression attribute names, never string
// interpolation.
func (s *Store) UpdateFields(ctx context.Context, id string, fields map[imagereview.RecordField]string) error {
	if len(fields) == 0 {
		return nil
	}

	// Deterministic expression order.
	names := make([]imagereview.RecordField, 0, len(fields))
	for field := range fields {
		names = append(names, field)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	expr := "SET"
	attrNames := make(map[string]string, len(fields))
	attrValues := make(map[string]types.AttributeValue, len(fields))
	for i, field := range names {
		if i > 0 {
			expr += ","
		}
		expr += fmt.Sprintf(" #f%d = :v%d", i, i)
		attrNames[fmt.Sprintf("#f%d", i)] = string(field)
		attrValues[fmt.Sprintf(":v%d", i)] = &types.AttributeValueMemberS{Value: fields[field]}
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  attrNames,
		ExpressionAttributeValues: attrValues,
	})
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", id, err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (*imagereview.ImageRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, imagereview.ErrRecordNotFound
	}

	var record imagereview.ImageRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return &record, nil
}
