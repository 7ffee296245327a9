package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultTableName is the DynamoDB table holding schedule records.
const DefaultTableName = "instance-scheduler-ConfigTable"

// DynamoDBAPI defines the DynamoDB operations the store uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store persists schedule records in a DynamoDB table keyed by schedule name.
type Store struct {
	client    DynamoDBAPI
	tableName string
}

// NewStore creates a schedule store backed by the given AWS config.
func NewStore(cfg aws.Config, tableName string) *Store {
	if tableName == "" {
		tableName = DefaultTableName
	}
	return &Store{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
	}
}

// CreateSchedule validates the record, stamps it and writes it. An existing
// record with the same name is replaced wholesale.
func (s *Store) CreateSchedule(ctx context.Context, record *ScheduleRecord) (*ScheduleRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := s.PutSchedule(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// PutSchedule writes a record without validation. Callers that accept
// operator input should go through CreateSchedule instead.
func (s *Store) PutSchedule(ctx context.Context, record *ScheduleRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal schedule record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put dynamodb item: %w", err)
	}

	return nil
}

// GetSchedule retrieves a single schedule by name.
func (s *Store) GetSchedule(ctx context.Context, name string) (*ScheduleRecord, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get dynamodb item: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("schedule not found: %s", name)
	}

	var record ScheduleRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("unmarshal schedule record: %w", err)
	}

	return &record, nil
}

// ListSchedules returns every stored schedule.
func (s *Store) ListSchedules(ctx context.Context) ([]ScheduleRecord, error) {
	return s.scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.tableName),
	})
}

// ListActiveSchedules returns only schedules marked active. A failure here is
// fatal to the calling sweep: a partial schedule list is worse than none.
func (s *Store) ListActiveSchedules(ctx context.Context) ([]ScheduleRecord, error) {
	return s.scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("active = :active"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
}

// scan pages through the full result set; DynamoDB caps each response at 1MB.
func (s *Store) scan(ctx context.Context, input *dynamodb.ScanInput) ([]ScheduleRecord, error) {
	var records []ScheduleRecord

	for {
		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan dynamodb table: %w", err)
		}

		for _, item := range result.Items {
			var record ScheduleRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("unmarshal schedule record: %w", err)
			}
			records = append(records, record)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return records, nil
}

// DeleteSchedule removes a schedule by name. Deleting a missing schedule is
// not an error; DynamoDB treats it as a successful no-op.
func (s *Store) DeleteSchedule(ctx context.Context, name string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
	})
	if err != nil {
		return fmt.Errorf("delete dynamodb item: %w", err)
	}
	return nil
}
