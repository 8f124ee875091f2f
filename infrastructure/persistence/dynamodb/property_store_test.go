package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propcache-backend/domain/core/entities"
	"propcache-backend/domain/events"
	pkgerrors "propcache-backend/pkg/errors"
)

// fakeDBClient is a minimal in-memory stand-in for a DynamoDB table.
// throttleBatches makes the next N BatchWriteItem calls return every request
// in UnprocessedItems with a nil error, the way a throttled table does.
type fakeDBClient struct {
	items           map[string]map[string]types.AttributeValue
	scanCalls       int
	throttleBatches int
}

func newFakeDBClient() *fakeDBClient {
	return &fakeDBClient{items: map[string]map[string]types.AttributeValue{}}
}

func itemID(item map[string]types.AttributeValue) string {
	return item["id"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	id := itemID(params.Item)
	_, exists := f.items[id]

	if params.ConditionExpression != nil {
		switch *params.ConditionExpression {
		case "attribute_not_exists(id)":
			if exists {
				return nil, &types.ConditionalCheckFailedException{}
			}
		case "attribute_exists(id)":
			if !exists {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}

	f.items[id] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	item, exists := f.items[itemID(params.Key)]
	if !exists {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	id := itemID(params.Key)
	item, exists := f.items[id]
	if !exists {
		return &dynamodb.DeleteItemOutput{}, nil
	}
	delete(f.items, id)
	return &dynamodb.DeleteItemOutput{Attributes: item}, nil
}

func (f *fakeDBClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanCalls++
	output := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		output.Items = append(output.Items, item)
	}
	return output, nil
}

func (f *fakeDBClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if f.throttleBatches > 0 {
		f.throttleBatches--
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: params.RequestItems}, nil
	}
	for _, writes := range params.RequestItems {
		for _, write := range writes {
			f.items[itemID(write.PutRequest.Item)] = write.PutRequest.Item
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func newDynamoProperty(t *testing.T, title string, createdAt time.Time) *entities.Property {
	t.Helper()
	property, err := entities.NewProperty(title, "", 100, "Accra")
	require.NoError(t, err)
	property.CreatedAt = createdAt
	property.UpdatedAt = createdAt
	return property
}

func TestDynamoPropertyStore_ListAllOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	client := newFakeDBClient()
	store := NewPropertyStore(client, "properties", nil)

	base := time.Now().UTC()
	// Insert newest first; ListAll must still come back oldest first
	_, err := store.Create(ctx, newDynamoProperty(t, "newest", base.Add(2*time.Hour)))
	require.NoError(t, err)
	_, err = store.Create(ctx, newDynamoProperty(t, "oldest", base))
	require.NoError(t, err)
	_, err = store.Create(ctx, newDynamoProperty(t, "middle", base.Add(time.Hour)))
	require.NoError(t, err)

	listed, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "oldest", listed[0].Title)
	assert.Equal(t, "middle", listed[1].Title)
	assert.Equal(t, "newest", listed[2].Title)
}

func TestDynamoPropertyStore_MutationsNotifyListeners(t *testing.T) {
	ctx := context.Background()
	client := newFakeDBClient()
	store := NewPropertyStore(client, "properties", nil)

	var received []events.MutationEvent
	store.Subscribe(func(event events.MutationEvent) {
		received = append(received, event)
	})

	property := newDynamoProperty(t, "home", time.Now().UTC())
	_, err := store.Create(ctx, property)
	require.NoError(t, err)

	property.Price = 500
	require.NoError(t, store.Update(ctx, property))
	require.NoError(t, store.Delete(ctx, property.ID))

	require.Len(t, received, 3)
	assert.Equal(t, events.MutationCreated, received[0].Kind)
	assert.Equal(t, events.MutationUpdated, received[1].Kind)
	assert.Equal(t, events.MutationDeleted, received[2].Kind)
	assert.Equal(t, "home", received[2].Property.Title)
}

func TestDynamoPropertyStore_DeleteMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewPropertyStore(newFakeDBClient(), "properties", nil)

	fired := 0
	store.Subscribe(func(events.MutationEvent) { fired++ })

	err := store.Delete(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Zero(t, fired)
}

func TestDynamoPropertyStore_CreateBatchEmitsOneEvent(t *testing.T) {
	ctx := context.Background()
	store := NewPropertyStore(newFakeDBClient(), "properties", nil)

	var received []events.MutationEvent
	store.Subscribe(func(event events.MutationEvent) {
		received = append(received, event)
	})

	now := time.Now().UTC()
	batch := []*entities.Property{
		newDynamoProperty(t, "a", now),
		newDynamoProperty(t, "b", now.Add(time.Minute)),
	}
	require.NoError(t, store.CreateBatch(ctx, batch))

	require.Len(t, received, 1)
	assert.Equal(t, 2, received[0].BatchSize)

	listed, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestDynamoPropertyStore_CreateBatchRetriesUnprocessedItems(t *testing.T) {
	ctx := context.Background()
	client := newFakeDBClient()
	client.throttleBatches = 2
	store := NewPropertyStore(client, "properties", nil)

	fired := 0
	store.Subscribe(func(events.MutationEvent) { fired++ })

	now := time.Now().UTC()
	batch := []*entities.Property{
		newDynamoProperty(t, "a", now),
		newDynamoProperty(t, "b", now.Add(time.Minute)),
	}
	require.NoError(t, store.CreateBatch(ctx, batch))
	assert.Equal(t, 1, fired)

	listed, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestDynamoPropertyStore_CreateBatchFailsWhenItemsStayUnprocessed(t *testing.T) {
	ctx := context.Background()
	client := newFakeDBClient()
	// Never drains: every attempt comes back fully unprocessed
	client.throttleBatches = 100
	store := NewPropertyStore(client, "properties", nil)

	fired := 0
	store.Subscribe(func(events.MutationEvent) { fired++ })

	err := store.CreateBatch(ctx, []*entities.Property{
		newDynamoProperty(t, "a", time.Now().UTC()),
	})
	assert.True(t, pkgerrors.IsPersistenceFailure(err))
	assert.Zero(t, fired)

	listed, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDynamoPropertyStore_UpdateMissingFails(t *testing.T) {
	ctx := context.Background()
	store := NewPropertyStore(newFakeDBClient(), "properties", nil)

	property := newDynamoProperty(t, "ghost", time.Now().UTC())
	err := store.Update(ctx, property)
	assert.True(t, pkgerrors.IsPersistenceFailure(err))
}
