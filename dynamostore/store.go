package dynamostore

import (
	"fmt"
	"sort"
	"sync"
)

// Item is a single row: attribute name to value. Values are the JSON
// scalar types (string, float64, bool) plus nested maps and slices.
type Item map[string]any

// Index is secondary-index bookkeeping on a table. Queries may target an
// index by name; the index's partition key then drives key validation.
type Index struct {
	Name         string
	PartitionKey string
	SortKey      string
}

// TableDescription is the metadata returned by DescribeTable.
type TableDescription struct {
	Name         string
	PartitionKey string
	SortKey      string
	ItemCount    int
	Indexes      []Index
}

type table struct {
	name         string
	partitionKey string
	sortKey      string
	indexes      []Index
	items        []Item
}

// itemKey builds the uniqueness key for an item. Values are rendered with
// %v, which is stable for the JSON scalar types items carry.
func (t *table) itemKey(item Item) string {
	if t.sortKey == "" {
		return fmt.Sprintf("%v", item[t.partitionKey])
	}
	return fmt.Sprintf("%v\x00%v", item[t.partitionKey], item[t.sortKey])
}

// Store is an in-memory collection of tables. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*table)}
}

// CreateTable creates a table with the given keys. sortKey may be empty.
func (s *Store) CreateTable(name, partitionKey, sortKey string) error {
	if name == "" {
		return validationError("tableName is required")
	}
	if partitionKey == "" {
		return validationError("partitionKey is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return &Error{Type: ErrTypeInUse, Message: fmt.Sprintf("Table already exists: %s", name)}
	}
	s.tables[name] = &table{name: name, partitionKey: partitionKey, sortKey: sortKey}
	return nil
}

// DeleteTable removes a table and all of its items.
func (s *Store) DeleteTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		return notFoundError("Table not found: %s", name)
	}
	delete(s.tables, name)
	return nil
}

// ListTables returns all table names, sorted.
func (s *Store) ListTables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DescribeTable returns table metadata.
func (s *Store) DescribeTable(name string) (TableDescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return TableDescription{}, notFoundError("Table not found: %s", name)
	}
	return TableDescription{
		Name:         t.name,
		PartitionKey: t.partitionKey,
		SortKey:      t.sortKey,
		ItemCount:    len(t.items),
		Indexes:      append([]Index(nil), t.indexes...),
	}, nil
}

// PutItem inserts or replaces an item. The item must carry the table's
// key attributes.
func (s *Store) PutItem(tableName string, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return notFoundError("Table not found: %s", tableName)
	}
	if err := t.validateKey(item); err != nil {
		return err
	}
	key := t.itemKey(item)
	for i, existing := range t.items {
		if t.itemKey(existing) == key {
			t.items[i] = item
			return nil
		}
	}
	t.items = append(t.items, item)
	return nil
}

// GetItem returns the item matching the key attributes.
func (s *Store) GetItem(tableName string, key Item) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[tableName]
	if !ok {
		return nil, notFoundError("Table not found: %s", tableName)
	}
	if err := t.validateKey(key); err != nil {
		return nil, err
	}
	want := t.itemKey(key)
	for _, item := range t.items {
		if t.itemKey(item) == want {
			return item, nil
		}
	}
	return nil, notFoundError("Item not found")
}

// UpdateItem merges updates into the item matching the key and returns the
// updated item.
func (s *Store) UpdateItem(tableName string, key Item, updates Item) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return nil, notFoundError("Table not found: %s", tableName)
	}
	if err := t.validateKey(key); err != nil {
		return nil, err
	}
	want := t.itemKey(key)
	for i, item := range t.items {
		if t.itemKey(item) != want {
			continue
		}
		merged := make(Item, len(item)+len(updates))
		for k, v := range item {
			merged[k] = v
		}
		for k, v := range updates {
			if k == t.partitionKey || (t.sortKey != "" && k == t.sortKey) {
				return nil, validationError("Cannot update key attribute: %s", k)
			}
			merged[k] = v
		}
		t.items[i] = merged
		return merged, nil
	}
	return nil, notFoundError("Item not found")
}

// DeleteItem removes the item matching the key attributes.
func (s *Store) DeleteItem(tableName string, key Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return notFoundError("Table not found: %s", tableName)
	}
	if err := t.validateKey(key); err != nil {
		return err
	}
	want := t.itemKey(key)
	for i, item := range t.items {
		if t.itemKey(item) == want {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return nil
		}
	}
	return notFoundError("Item not found")
}

// CreateIndex records a secondary index on a table.
func (s *Store) CreateIndex(tableName string, idx Index) error {
	if idx.Name == "" {
		return validationError("indexName is required")
	}
	if idx.PartitionKey == "" {
		return validationError("partitionKey is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return notFoundError("Table not found: %s", tableName)
	}
	for _, existing := range t.indexes {
		if existing.Name == idx.Name {
			return &Error{Type: ErrTypeInUse, Message: fmt.Sprintf("Index already exists: %s", idx.Name)}
		}
	}
	t.indexes = append(t.indexes, idx)
	return nil
}

// QueryInput carries the arguments of Query.
type QueryInput struct {
	TableName                 string
	IndexName                 string
	KeyConditionExpression    string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]any
	Limit                     int
}

// Query evaluates the key condition against a table (or one of its
// indexes). The condition must constrain the partition key with an
// equality comparison; anything else is a validation error.
func (s *Store) Query(in QueryInput) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[in.TableName]
	if !ok {
		return nil, notFoundError("Table not found: %s", in.TableName)
	}
	if in.KeyConditionExpression == "" {
		return nil, validationError("keyConditionExpression is required")
	}

	partitionKey := t.partitionKey
	if in.IndexName != "" {
		idx, ok := t.index(in.IndexName)
		if !ok {
			return nil, notFoundError("Index not found: %s", in.IndexName)
		}
		partitionKey = idx.PartitionKey
	}

	conds, err := parseConditions(in.KeyConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !hasPartitionEquality(conds, partitionKey) {
		return nil, validationError("Query condition missed key schema element: %s", partitionKey)
	}

	return t.collect(conds, in.Limit), nil
}

// ScanInput carries the arguments of Scan.
type ScanInput struct {
	TableName                 string
	IndexName                 string
	FilterExpression          string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]any
	Limit                     int
}

// Scan walks every item, applying the filter expression when present.
func (s *Store) Scan(in ScanInput) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[in.TableName]
	if !ok {
		return nil, notFoundError("Table not found: %s", in.TableName)
	}
	var conds []condition
	if in.FilterExpression != "" {
		var err error
		conds, err = parseConditions(in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
	}
	return t.collect(conds, in.Limit), nil
}

func (t *table) index(name string) (Index, bool) {
	for _, idx := range t.indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

func (t *table) validateKey(item Item) error {
	if _, ok := item[t.partitionKey]; !ok {
		return validationError("Missing key attribute: %s", t.partitionKey)
	}
	if t.sortKey != "" {
		if _, ok := item[t.sortKey]; !ok {
			return validationError("Missing key attribute: %s", t.sortKey)
		}
	}
	return nil
}

func (t *table) collect(conds []condition, limit int) []Item {
	var result []Item
	for _, item := range t.items {
		if !evaluate(item, conds) {
			continue
		}
		result = append(result, item)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

func hasPartitionEquality(conds []condition, partitionKey string) bool {
	for _, c := range conds {
		if c.attr == partitionKey && c.op == "=" {
			return true
		}
	}
	return false
}
