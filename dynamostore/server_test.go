package dynamostore_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mhalter/tabletalk"
	"github.com/mhalter/tabletalk/dynamostore"
	"github.com/mhalter/tabletalk/mcptool"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStoreClient connects an mcptool client to a dynamostore server over
// in-memory transports.
func newStoreClient(t *testing.T, store *dynamostore.Store) *mcptool.Client {
	t.Helper()

	server := dynamostore.NewServer(store)
	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan error, 1)
	go func() {
		session, err := server.Connect(ctx, serverTransport, nil)
		if err != nil {
			ready <- err
			return
		}
		ready <- nil
		<-ctx.Done()
		_ = session.Close()
	}()

	client := mcptool.New("inmemory", mcptool.WithTransport(clientTransport))
	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		require.NoError(t, <-ready)
	})
	return client
}

func callStore(t *testing.T, client *mcptool.Client, tool, args string) (map[string]any, bool) {
	t.Helper()
	res, err := client.Execute(context.Background(), tool, json.RawMessage(args))
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(tabletalk.TextBlock)
	require.True(t, ok)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload, res.IsError
}

func TestServer_Catalog(t *testing.T) {
	t.Parallel()
	client := newStoreClient(t, dynamostore.NewStore())

	tools, err := client.Catalog(context.Background())
	require.NoError(t, err)

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	for _, want := range []string{
		"create_table", "delete_table", "list_tables", "describe_table",
		"put_item", "get_item", "update_item", "delete_item",
		"query", "scan", "create_index",
	} {
		assert.Contains(t, names, want)
	}
}

func TestServer_ListTables(t *testing.T) {
	t.Parallel()
	store := dynamostore.NewStore()
	require.NoError(t, store.CreateTable("T1", "id", ""))
	require.NoError(t, store.CreateTable("T2", "id", ""))
	client := newStoreClient(t, store)

	payload, isError := callStore(t, client, "list_tables", `{}`)
	assert.False(t, isError)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "Tables listed successfully", payload["message"])
	assert.Equal(t, []any{"T1", "T2"}, payload["tables"])
	assert.Equal(t, float64(2), payload["tableCount"])
}

func TestServer_ItemRoundTrip(t *testing.T) {
	t.Parallel()
	client := newStoreClient(t, dynamostore.NewStore())

	payload, isError := callStore(t, client, "create_table",
		`{"tableName":"Users","partitionKey":"Name"}`)
	assert.False(t, isError)
	assert.Equal(t, true, payload["success"])

	payload, isError = callStore(t, client, "put_item",
		`{"tableName":"Users","item":{"Name":"alice","Age":31}}`)
	assert.False(t, isError)
	assert.Equal(t, true, payload["success"])

	payload, isError = callStore(t, client, "get_item",
		`{"tableName":"Users","key":{"Name":"alice"}}`)
	assert.False(t, isError)
	item, ok := payload["item"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(31), item["Age"])
}

func TestServer_QueryMissedKeyReportsValidation(t *testing.T) {
	t.Parallel()
	store := dynamostore.NewStore()
	require.NoError(t, store.CreateTable("Users", "Name", ""))
	client := newStoreClient(t, store)

	payload, isError := callStore(t, client, "query",
		`{"tableName":"Users","keyConditionExpression":"Age > :a","expressionAttributeValues":{":a":30}}`)
	assert.True(t, isError)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "ValidationException", payload["errorType"])
	assert.Contains(t, payload["message"], "Query condition missed key schema element")
}

func TestServer_UnknownTable(t *testing.T) {
	t.Parallel()
	client := newStoreClient(t, dynamostore.NewStore())

	payload, isError := callStore(t, client, "scan", `{"tableName":"Nope"}`)
	assert.True(t, isError)
	assert.Equal(t, "ResourceNotFoundException", payload["errorType"])
}

func TestServer_ScanEmptyTableReturnsEmptyItems(t *testing.T) {
	t.Parallel()
	store := dynamostore.NewStore()
	require.NoError(t, store.CreateTable("Users", "Name", ""))
	client := newStoreClient(t, store)

	payload, isError := callStore(t, client, "scan", `{"tableName":"Users"}`)
	assert.False(t, isError)
	items, ok := payload["items"].([]any)
	require.True(t, ok)
	assert.Empty(t, items)
	assert.Equal(t, float64(0), payload["count"])
}
