package dynamostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server exposing the store's operations as tools.
// Every tool responds with a JSON object carrying at least success and
// message; failed operations additionally carry errorType and set the
// result's error flag.
func NewServer(store *Store) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "dynamostore", Version: "dev"}, nil)
	registerTools(server, store)
	return server
}

type createTableArgs struct {
	TableName    string `json:"tableName"`
	PartitionKey string `json:"partitionKey"`
	SortKey      string `json:"sortKey"`
}

type tableArgs struct {
	TableName string `json:"tableName"`
}

type putItemArgs struct {
	TableName string `json:"tableName"`
	Item      Item   `json:"item"`
}

type keyArgs struct {
	TableName string `json:"tableName"`
	Key       Item   `json:"key"`
}

type updateItemArgs struct {
	TableName string `json:"tableName"`
	Key       Item   `json:"key"`
	Updates   Item   `json:"updates"`
}

type queryArgs struct {
	TableName                 string            `json:"tableName"`
	IndexName                 string            `json:"indexName"`
	KeyConditionExpression    string            `json:"keyConditionExpression"`
	FilterExpression          string            `json:"filterExpression"`
	ExpressionAttributeNames  map[string]string `json:"expressionAttributeNames"`
	ExpressionAttributeValues map[string]any    `json:"expressionAttributeValues"`
	Limit                     int               `json:"limit"`
}

type createIndexArgs struct {
	TableName    string `json:"tableName"`
	IndexName    string `json:"indexName"`
	PartitionKey string `json:"partitionKey"`
	SortKey      string `json:"sortKey"`
}

func registerTools(server *mcpsdk.Server, store *Store) {
	addTool(server, "create_table", "Create a table with a partition key and optional sort key",
		objectSchema(map[string]any{
			"tableName":    stringProp("Name of the table"),
			"partitionKey": stringProp("Partition key attribute name"),
			"sortKey":      stringProp("Optional sort key attribute name"),
		}, "tableName", "partitionKey"),
		func(args createTableArgs) (map[string]any, error) {
			if err := store.CreateTable(args.TableName, args.PartitionKey, args.SortKey); err != nil {
				return nil, err
			}
			return result("Table created successfully: " + args.TableName), nil
		})

	addTool(server, "delete_table", "Delete a table and all of its items",
		objectSchema(map[string]any{
			"tableName": stringProp("Name of the table"),
		}, "tableName"),
		func(args tableArgs) (map[string]any, error) {
			if err := store.DeleteTable(args.TableName); err != nil {
				return nil, err
			}
			return result("Table deleted successfully: " + args.TableName), nil
		})

	addTool(server, "list_tables", "List all tables",
		objectSchema(map[string]any{}),
		func(_ struct{}) (map[string]any, error) {
			tables := store.ListTables()
			res := result("Tables listed successfully")
			res["tables"] = tables
			res["tableCount"] = len(tables)
			return res, nil
		})

	addTool(server, "describe_table", "Describe a table's key schema and indexes",
		objectSchema(map[string]any{
			"tableName": stringProp("Name of the table"),
		}, "tableName"),
		func(args tableArgs) (map[string]any, error) {
			desc, err := store.DescribeTable(args.TableName)
			if err != nil {
				return nil, err
			}
			attributes := map[string]any{
				"tableName":    desc.Name,
				"partitionKey": desc.PartitionKey,
				"itemCount":    desc.ItemCount,
			}
			if desc.SortKey != "" {
				attributes["sortKey"] = desc.SortKey
			}
			if len(desc.Indexes) > 0 {
				indexes := make([]map[string]any, len(desc.Indexes))
				for i, idx := range desc.Indexes {
					indexes[i] = map[string]any{
						"indexName":    idx.Name,
						"partitionKey": idx.PartitionKey,
					}
					if idx.SortKey != "" {
						indexes[i]["sortKey"] = idx.SortKey
					}
				}
				attributes["indexes"] = indexes
			}
			res := result("Table described successfully")
			res["attributes"] = attributes
			return res, nil
		})

	addTool(server, "put_item", "Insert or replace an item",
		objectSchema(map[string]any{
			"tableName": stringProp("Name of the table"),
			"item":      objectProp("Item attributes, including the key attributes"),
		}, "tableName", "item"),
		func(args putItemArgs) (map[string]any, error) {
			if err := store.PutItem(args.TableName, args.Item); err != nil {
				return nil, err
			}
			return result("Item put successfully"), nil
		})

	addTool(server, "get_item", "Fetch a single item by its key",
		objectSchema(map[string]any{
			"tableName": stringProp("Name of the table"),
			"key":       objectProp("Key attributes identifying the item"),
		}, "tableName", "key"),
		func(args keyArgs) (map[string]any, error) {
			item, err := store.GetItem(args.TableName, args.Key)
			if err != nil {
				return nil, err
			}
			res := result("Item retrieved successfully")
			res["item"] = item
			return res, nil
		})

	addTool(server, "update_item", "Merge attribute updates into an existing item",
		objectSchema(map[string]any{
			"tableName": stringProp("Name of the table"),
			"key":       objectProp("Key attributes identifying the item"),
			"updates":   objectProp("Attributes to set; key attributes cannot change"),
		}, "tableName", "key", "updates"),
		func(args updateItemArgs) (map[string]any, error) {
			updated, err := store.UpdateItem(args.TableName, args.Key, args.Updates)
			if err != nil {
				return nil, err
			}
			res := result("Item updated successfully")
			res["attributes"] = updated
			return res, nil
		})

	addTool(server, "delete_item", "Delete a single item by its key",
		objectSchema(map[string]any{
			"tableName": stringProp("Name of the table"),
			"key":       objectProp("Key attributes identifying the item"),
		}, "tableName", "key"),
		func(args keyArgs) (map[string]any, error) {
			if err := store.DeleteItem(args.TableName, args.Key); err != nil {
				return nil, err
			}
			return result("Item deleted successfully"), nil
		})

	addTool(server, "query", "Query items by key condition; the partition key must be constrained with equality",
		objectSchema(map[string]any{
			"tableName":                 stringProp("Name of the table"),
			"indexName":                 stringProp("Optional secondary index to query"),
			"keyConditionExpression":    stringProp("Key condition, e.g. \"Name = :n AND Age > :a\""),
			"expressionAttributeNames":  objectProp("Aliases for attribute names, e.g. {\"#name\": \"Name\"}"),
			"expressionAttributeValues": objectProp("Values for :placeholders"),
			"limit":                     numberProp("Maximum number of items to return"),
		}, "tableName", "keyConditionExpression"),
		func(args queryArgs) (map[string]any, error) {
			items, err := store.Query(QueryInput{
				TableName:                 args.TableName,
				IndexName:                 args.IndexName,
				KeyConditionExpression:    args.KeyConditionExpression,
				ExpressionAttributeNames:  args.ExpressionAttributeNames,
				ExpressionAttributeValues: args.ExpressionAttributeValues,
				Limit:                     args.Limit,
			})
			if err != nil {
				return nil, err
			}
			return itemsResult("Query completed successfully", items), nil
		})

	addTool(server, "scan", "Scan all items, optionally applying a filter expression",
		objectSchema(map[string]any{
			"tableName":                 stringProp("Name of the table"),
			"indexName":                 stringProp("Optional secondary index to scan"),
			"filterExpression":          stringProp("Filter condition, e.g. \"Age > :a\""),
			"expressionAttributeNames":  objectProp("Aliases for attribute names"),
			"expressionAttributeValues": objectProp("Values for :placeholders"),
			"limit":                     numberProp("Maximum number of items to return"),
		}, "tableName"),
		func(args queryArgs) (map[string]any, error) {
			items, err := store.Scan(ScanInput{
				TableName:                 args.TableName,
				IndexName:                 args.IndexName,
				FilterExpression:          args.FilterExpression,
				ExpressionAttributeNames:  args.ExpressionAttributeNames,
				ExpressionAttributeValues: args.ExpressionAttributeValues,
				Limit:                     args.Limit,
			})
			if err != nil {
				return nil, err
			}
			return itemsResult("Scan completed successfully", items), nil
		})

	addTool(server, "create_index", "Record a secondary index on a table",
		objectSchema(map[string]any{
			"tableName":    stringProp("Name of the table"),
			"indexName":    stringProp("Name of the index"),
			"partitionKey": stringProp("Index partition key attribute name"),
			"sortKey":      stringProp("Optional index sort key attribute name"),
		}, "tableName", "indexName", "partitionKey"),
		func(args createIndexArgs) (map[string]any, error) {
			idx := Index{Name: args.IndexName, PartitionKey: args.PartitionKey, SortKey: args.SortKey}
			if err := store.CreateIndex(args.TableName, idx); err != nil {
				return nil, err
			}
			return result("Index created successfully: " + args.IndexName), nil
		})
}

// addTool registers one tool whose handler decodes typed arguments and
// returns a response object. Domain errors become success:false responses
// with the result's error flag set; anything else propagates as a
// protocol error.
func addTool[A any](server *mcpsdk.Server, name, description string, schema map[string]any, handler func(A) (map[string]any, error)) {
	server.AddTool(&mcpsdk.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, func(_ context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args A
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(validationError("Invalid arguments: %v", err)), nil
			}
		}
		res, err := handler(args)
		if err != nil {
			var domainErr *Error
			if errors.As(err, &domainErr) {
				return errorResult(domainErr), nil
			}
			return nil, err
		}
		return textResult(res, false), nil
	})
}

func result(message string) map[string]any {
	return map[string]any{"success": true, "message": message}
}

func itemsResult(message string, items []Item) map[string]any {
	if items == nil {
		items = []Item{}
	}
	res := result(message)
	res["items"] = items
	res["count"] = len(items)
	return res
}

func errorResult(err *Error) *mcpsdk.CallToolResult {
	return textResult(map[string]any{
		"success":   false,
		"message":   err.Message,
		"errorType": err.Type,
	}, true)
}

func textResult(payload map[string]any, isError bool) *mcpsdk.CallToolResult {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"success":false,"message":%q}`, err.Error()))
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
		IsError: isError,
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		schema["required"] = req
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func objectProp(description string) map[string]any {
	return map[string]any{"type": "object", "description": description}
}
