// Package dynamodb provides a DynamoDB-backed property store for deployed
// environments. Listing order is stable: items are sorted by creation time,
// then id.
package dynamodb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"propcache-backend/domain/core/entities"
	"propcache-backend/domain/events"
	pkgerrors "propcache-backend/pkg/errors"
)

// DBClient defines the DynamoDB operations the store needs, keeping it
// testable without a live table.
type DBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// propertyRecord is the persisted shape of a property
type propertyRecord struct {
	ID          string  `dynamodbav:"id"`
	Title       string  `dynamodbav:"title"`
	Description string  `dynamodbav:"description"`
	Price       float64 `dynamodbav:"price"`
	Location    string  `dynamodbav:"location"`
	CreatedAt   string  `dynamodbav:"created_at"`
	UpdatedAt   string  `dynamodbav:"updated_at"`
}

// PropertyStore persists properties in a DynamoDB table keyed by id.
// Listeners registered via Subscribe are invoked synchronously after each
// successful mutation, before the mutating call returns.
type PropertyStore struct {
	client    DBClient
	tableName string

	mu        sync.RWMutex
	listeners []events.MutationListener

	logger *zap.Logger
}

// NewPropertyStore creates a DynamoDB-backed store
func NewPropertyStore(client DBClient, tableName string, logger *zap.Logger) *PropertyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropertyStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Subscribe registers a mutation listener
func (s *PropertyStore) Subscribe(listener events.MutationListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// ListAll scans the table and returns properties ordered by creation time,
// then id, so repeated calls over unchanged data return the same sequence.
func (s *PropertyStore) ListAll(ctx context.Context) ([]*entities.Property, error) {
	var properties []*entities.Property
	var startKey map[string]types.AttributeValue

	for {
		output, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, pkgerrors.NewBackendUnavailableError("store scan failed", err)
		}

		var records []propertyRecord
		if err := attributevalue.UnmarshalListOfMaps(output.Items, &records); err != nil {
			return nil, pkgerrors.NewInternalError("failed to unmarshal properties", err)
		}
		for i := range records {
			property, err := recordToEntity(&records[i])
			if err != nil {
				return nil, err
			}
			properties = append(properties, property)
		}

		if output.LastEvaluatedKey == nil {
			break
		}
		startKey = output.LastEvaluatedKey
	}

	sort.Slice(properties, func(i, j int) bool {
		if !properties[i].CreatedAt.Equal(properties[j].CreatedAt) {
			return properties[i].CreatedAt.Before(properties[j].CreatedAt)
		}
		return properties[i].ID < properties[j].ID
	})

	return properties, nil
}

// FindByID fetches a single property
func (s *PropertyStore) FindByID(ctx context.Context, id string) (*entities.Property, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       idKey(id),
	})
	if err != nil {
		return nil, pkgerrors.NewBackendUnavailableError("store get failed", err)
	}
	if output.Item == nil {
		return nil, pkgerrors.NewNotFoundError("property not found: " + id)
	}

	var record propertyRecord
	if err := attributevalue.UnmarshalMap(output.Item, &record); err != nil {
		return nil, pkgerrors.NewInternalError("failed to unmarshal property", err)
	}
	return recordToEntity(&record)
}

// Create persists a new property and notifies listeners
func (s *PropertyStore) Create(ctx context.Context, property *entities.Property) (*entities.Property, error) {
	item, err := attributevalue.MarshalMap(entityToRecord(property))
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to marshal property", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return nil, pkgerrors.NewPersistenceError("failed to create property", err)
	}

	s.notify(events.MutationEvent{Kind: events.MutationCreated, Property: property.Clone(), BatchSize: 1})
	return property.Clone(), nil
}

// CreateBatch persists several properties via BatchWriteItem and emits one
// aggregate mutation event for the whole batch. The event fires only after
// every item has been durably written; a partially processed batch is a
// persistence failure.
func (s *PropertyStore) CreateBatch(ctx context.Context, properties []*entities.Property) error {
	if len(properties) == 0 {
		return nil
	}

	// DynamoDB caps BatchWriteItem at 25 items per request
	const batchLimit = 25
	for start := 0; start < len(properties); start += batchLimit {
		end := start + batchLimit
		if end > len(properties) {
			end = len(properties)
		}

		writes := make([]types.WriteRequest, 0, end-start)
		for _, property := range properties[start:end] {
			item, err := attributevalue.MarshalMap(entityToRecord(property))
			if err != nil {
				return pkgerrors.NewInternalError("failed to marshal property", err)
			}
			writes = append(writes, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := s.writeBatch(ctx, writes); err != nil {
			return err
		}
	}

	s.notify(events.MutationEvent{Kind: events.MutationCreated, BatchSize: len(properties)})
	return nil
}

// writeBatch writes one BatchWriteItem request, retrying unprocessed items
// with backoff. Throttled items come back in UnprocessedItems with a nil
// error and must not be treated as written.
func (s *PropertyStore) writeBatch(ctx context.Context, writes []types.WriteRequest) error {
	const maxRetries = 3

	unprocessed := writes
	for retry := 0; retry <= maxRetries && len(unprocessed) > 0; retry++ {
		if retry > 0 {
			backoff := time.Duration(retry*retry) * 100 * time.Millisecond
			s.logger.Warn("Retrying unprocessed batch items",
				zap.Int("count", len(unprocessed)),
				zap.Int("retry", retry),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return pkgerrors.NewPersistenceError("batch create cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}

		output, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: unprocessed,
			},
		})
		if err != nil {
			return pkgerrors.NewPersistenceError("failed to batch create properties", err)
		}
		unprocessed = output.UnprocessedItems[s.tableName]
	}

	if len(unprocessed) > 0 {
		return pkgerrors.NewPersistenceError("failed to batch create properties: items remain unprocessed after retries", nil)
	}
	return nil
}

// Update replaces an existing property and notifies listeners
func (s *PropertyStore) Update(ctx context.Context, property *entities.Property) error {
	item, err := attributevalue.MarshalMap(entityToRecord(property))
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal property", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		return pkgerrors.NewPersistenceError("failed to update property", err)
	}

	s.notify(events.MutationEvent{Kind: events.MutationUpdated, Property: property.Clone(), BatchSize: 1})
	return nil
}

// Delete removes a property and notifies listeners
func (s *PropertyStore) Delete(ctx context.Context, id string) error {
	output, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          idKey(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return pkgerrors.NewPersistenceError("failed to delete property", err)
	}
	if output.Attributes == nil {
		return pkgerrors.NewNotFoundError("property not found: " + id)
	}

	var record propertyRecord
	var deleted *entities.Property
	if err := attributevalue.UnmarshalMap(output.Attributes, &record); err == nil {
		deleted, _ = recordToEntity(&record)
	}

	s.notify(events.MutationEvent{Kind: events.MutationDeleted, Property: deleted, BatchSize: 1})
	return nil
}

func (s *PropertyStore) notify(event events.MutationEvent) {
	s.mu.RLock()
	listeners := make([]events.MutationListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func entityToRecord(property *entities.Property) *propertyRecord {
	return &propertyRecord{
		ID:          property.ID,
		Title:       property.Title,
		Description: property.Description,
		Price:       property.Price,
		Location:    property.Location,
		CreatedAt:   property.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   property.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func recordToEntity(record *propertyRecord) (*entities.Property, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, record.CreatedAt)
	if err != nil {
		return nil, pkgerrors.NewInternalError("invalid created_at on stored property", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, record.UpdatedAt)
	if err != nil {
		return nil, pkgerrors.NewInternalError("invalid updated_at on stored property", err)
	}

	return &entities.Property{
		ID:          record.ID,
		Title:       record.Title,
		Description: record.Description,
		Price:       record.Price,
		Location:    record.Location,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
