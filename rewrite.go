package tabletalk

import (
	"encoding/json"
	"strings"
)

// Default tool names for the point-query and full-scan operations in the
// backend catalog.
const (
	QueryToolName = "query"
	ScanToolName  = "scan"
)

// KeyConditionClassifier decides whether a key-condition expression is
// missing its partition-key condition and should be rewritten into a scan.
// The default implementation is a substring heuristic, not an expression
// parse; it lives behind this interface so a real grammar can replace it
// without touching the orchestrator.
type KeyConditionClassifier interface {
	NeedsRewrite(expr string) bool
}

// SubstringClassifier flags expressions mentioning the sort-key attribute
// while never mentioning the partition-key attribute or its alias form.
// Deliberately conservative: an expression naming neither attribute is left
// alone for the backend to judge.
type SubstringClassifier struct {
	SortKey        string
	PartitionKey   string
	PartitionAlias string
}

// DefaultClassifier returns the classifier for the conventional Name/Age
// key schema.
func DefaultClassifier() SubstringClassifier {
	return SubstringClassifier{SortKey: "Age", PartitionKey: "Name", PartitionAlias: "#name"}
}

// NeedsRewrite implements KeyConditionClassifier.
func (c SubstringClassifier) NeedsRewrite(expr string) bool {
	return strings.Contains(expr, c.SortKey) &&
		!strings.Contains(expr, c.PartitionKey) &&
		!strings.Contains(expr, c.PartitionAlias)
}

// QueryOptimizer inspects outgoing point-query tool calls and rewrites calls
// judged to be missing a partition-key condition into full-table scans with
// the key condition demoted to a filter.
type QueryOptimizer struct {
	QueryTool  string
	ScanTool   string
	Classifier KeyConditionClassifier
}

// NewQueryOptimizer returns an optimizer with the default tool names and
// classifier.
func NewQueryOptimizer() *QueryOptimizer {
	return &QueryOptimizer{
		QueryTool:  QueryToolName,
		ScanTool:   ScanToolName,
		Classifier: DefaultClassifier(),
	}
}

// Optimize returns the possibly rewritten tool name and arguments. The
// boolean reports whether a rewrite occurred. Arguments that fail to parse
// pass through untouched; argument validation is not this layer's job.
func (o *QueryOptimizer) Optimize(toolName string, args json.RawMessage) (string, json.RawMessage, bool) {
	if toolName != o.QueryTool {
		return toolName, args, false
	}
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return toolName, args, false
	}
	expr, ok := m["keyConditionExpression"].(string)
	if !ok || !o.Classifier.NeedsRewrite(expr) {
		return toolName, args, false
	}
	rewritten, err := scanArguments(m, expr)
	if err != nil {
		return toolName, args, false
	}
	return o.ScanTool, rewritten, true
}

// RewriteAsScan applies the query→scan substitution unconditionally, for the
// fallback retry after the backend rejects a key condition.
func (o *QueryOptimizer) RewriteAsScan(args json.RawMessage) (json.RawMessage, error) {
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return nil, err
	}
	expr, _ := m["keyConditionExpression"].(string)
	return scanArguments(m, expr)
}

// scanArguments builds scan arguments from point-query arguments: the key
// condition becomes the filter expression and the table name, attribute
// maps, and limit carry over unchanged.
func scanArguments(query map[string]any, keyCondition string) (json.RawMessage, error) {
	scan := map[string]any{}
	for _, key := range []string{"tableName", "expressionAttributeNames", "expressionAttributeValues", "limit", "indexName"} {
		if v, ok := query[key]; ok {
			scan[key] = v
		}
	}
	if keyCondition != "" {
		scan["filterExpression"] = keyCondition
	}
	return json.Marshal(scan)
}

// IsKeyConditionError reports whether a backend failure message indicates a
// rejected key condition, the trigger for the single scan fallback.
func IsKeyConditionError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{
		"query condition missed key schema element",
		"invalid keyconditionexpression",
		"invalid key condition",
		"syntax error",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
