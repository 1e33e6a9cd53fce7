package dynamostore_test

import (
	"testing"

	"github.com/mhalter/tabletalk/dynamostore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T) *dynamostore.Store {
	t.Helper()
	store := dynamostore.NewStore()
	require.NoError(t, store.CreateTable("Users", "Name", ""))
	for _, item := range []dynamostore.Item{
		{"Name": "alice", "Age": float64(31), "City": "Oslo"},
		{"Name": "bob", "Age": float64(25), "City": "Lima"},
		{"Name": "carol", "Age": float64(47), "City": "Oslo"},
	} {
		require.NoError(t, store.PutItem("Users", item))
	}
	return store
}

func TestStore_TableLifecycle(t *testing.T) {
	t.Parallel()
	store := dynamostore.NewStore()

	require.NoError(t, store.CreateTable("Orders", "OrderID", "Date"))
	assert.Equal(t, []string{"Orders"}, store.ListTables())

	err := store.CreateTable("Orders", "OrderID", "")
	var domainErr *dynamostore.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, dynamostore.ErrTypeInUse, domainErr.Type)

	desc, err := store.DescribeTable("Orders")
	require.NoError(t, err)
	assert.Equal(t, "OrderID", desc.PartitionKey)
	assert.Equal(t, "Date", desc.SortKey)
	assert.Zero(t, desc.ItemCount)

	require.NoError(t, store.DeleteTable("Orders"))
	assert.Empty(t, store.ListTables())

	err = store.DeleteTable("Orders")
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, dynamostore.ErrTypeNotFound, domainErr.Type)
}

func TestStore_ItemCRUD(t *testing.T) {
	t.Parallel()
	store := seedUsers(t)

	item, err := store.GetItem("Users", dynamostore.Item{"Name": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "Oslo", item["City"])

	// Put with the same key replaces.
	require.NoError(t, store.PutItem("Users", dynamostore.Item{"Name": "alice", "Age": float64(32)}))
	item, err = store.GetItem("Users", dynamostore.Item{"Name": "alice"})
	require.NoError(t, err)
	assert.Equal(t, float64(32), item["Age"])
	assert.NotContains(t, item, "City")

	updated, err := store.UpdateItem("Users", dynamostore.Item{"Name": "bob"}, dynamostore.Item{"City": "Quito"})
	require.NoError(t, err)
	assert.Equal(t, "Quito", updated["City"])
	assert.Equal(t, float64(25), updated["Age"])

	_, err = store.UpdateItem("Users", dynamostore.Item{"Name": "bob"}, dynamostore.Item{"Name": "robert"})
	var domainErr *dynamostore.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, dynamostore.ErrTypeValidation, domainErr.Type)

	require.NoError(t, store.DeleteItem("Users", dynamostore.Item{"Name": "carol"}))
	_, err = store.GetItem("Users", dynamostore.Item{"Name": "carol"})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, dynamostore.ErrTypeNotFound, domainErr.Type)
}

func TestStore_MissingKeyAttribute(t *testing.T) {
	t.Parallel()
	store := seedUsers(t)

	err := store.PutItem("Users", dynamostore.Item{"Age": float64(10)})
	var domainErr *dynamostore.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, dynamostore.ErrTypeValidation, domainErr.Type)
	assert.Contains(t, domainErr.Message, "Name")
}

func TestStore_Query(t *testing.T) {
	t.Parallel()
	store := seedUsers(t)

	items, err := store.Query(dynamostore.QueryInput{
		TableName:                 "Users",
		KeyConditionExpression:    "Name = :n",
		ExpressionAttributeValues: map[string]any{":n": "alice"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0]["Name"])
}

func TestStore_Query_MissedKeySchemaElement(t *testing.T) {
	t.Parallel()
	store := seedUsers(t)

	_, err := store.Query(dynamostore.QueryInput{
		TableName:                 "Users",
		KeyConditionExpression:    "Age > :a",
		ExpressionAttributeValues: map[string]any{":a": float64(30)},
	})
	var domainErr *dynamostore.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, dynamostore.ErrTypeValidation, domainErr.Type)
	assert.Contains(t, domainErr.Message, "Query condition missed key schema element: Name")
}

func TestStore_Query_AliasAndCompound(t *testing.T) {
	t.Parallel()
	store := seedUsers(t)

	items, err := store.Query(dynamostore.QueryInput{
		TableName:                "Users",
		KeyConditionExpression:   "#name = :n AND Age >= :a",
		ExpressionAttributeNames: map[string]string{"#name": "Name"},
		ExpressionAttributeValues: map[string]any{
			":n": "carol",
			":a": float64(40),
		},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "carol", items[0]["Name"])
}

func TestStore_Query_Index(t *testing.T) {
	t.Parallel()
	store := seedUsers(t)
	require.NoError(t, store.CreateIndex("Users", dynamostore.Index{Name: "city-index", PartitionKey: "City"}))

	items, err := store.Query(dynamostore.QueryInput{
		TableName:                 "Users",
		IndexName:                 "city-index",
		KeyConditionExpression:    "City = :c",
		ExpressionAttributeValues: map[string]any{":c": "Oslo"},
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// The base table's partition key no longer satisfies the index schema.
	_, err = store.Query(dynamostore.QueryInput{
		TableName:                 "Users",
		IndexName:                 "city-index",
		KeyConditionExpression:    "Name = :n",
		ExpressionAttributeValues: map[string]any{":n": "alice"},
	})
	var domainErr *dynamostore.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Message, "City")
}

func TestStore_Scan(t *testing.T) {
	t.Parallel()
	store := seedUsers(t)

	items, err := store.Scan(dynamostore.ScanInput{TableName: "Users"})
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = store.Scan(dynamostore.ScanInput{
		TableName:                 "Users",
		FilterExpression:          "Age > :a",
		ExpressionAttributeValues: map[string]any{":a": float64(30)},
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = store.Scan(dynamostore.ScanInput{
		TableName:                 "Users",
		FilterExpression:          "Age > :a",
		ExpressionAttributeValues: map[string]any{":a": float64(30)},
		Limit:                     1,
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestStore_Scan_BadExpression(t *testing.T) {
	t.Parallel()
	store := seedUsers(t)

	_, err := store.Scan(dynamostore.ScanInput{
		TableName:        "Users",
		FilterExpression: "Age !! :a",
	})
	var domainErr *dynamostore.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, dynamostore.ErrTypeValidation, domainErr.Type)

	_, err = store.Scan(dynamostore.ScanInput{
		TableName:        "Users",
		FilterExpression: "Age > :missing",
	})
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Message, ":missing")
}

func TestStore_StringComparison(t *testing.T) {
	t.Parallel()
	store := seedUsers(t)

	items, err := store.Scan(dynamostore.ScanInput{
		TableName:                 "Users",
		FilterExpression:          "City = :c AND Name < :n",
		ExpressionAttributeValues: map[string]any{":c": "Oslo", ":n": "b"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0]["Name"])
}
