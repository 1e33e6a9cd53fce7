// Package dynamostore is an in-memory table store with a DynamoDB-flavored
// surface, exposed over MCP as the tool catalog the orchestrator drives.
//
// Tables carry a partition key and an optional sort key. Query evaluates a
// key condition expression and requires an equality constraint on the
// partition key; Scan evaluates a filter expression over every item. The
// expression language is deliberately small: comparisons (=, <, <=, >, >=)
// joined by AND, with :value placeholders and #name aliases. There is no
// query planner and no type checking of tool arguments beyond what the
// operations themselves need.
package dynamostore

import "fmt"

// DynamoDB-style error type identifiers, reported to the model as the
// errorType field of failed tool responses.
const (
	ErrTypeValidation = "ValidationException"
	ErrTypeNotFound   = "ResourceNotFoundException"
	ErrTypeInUse      = "ResourceInUseException"
)

// Error is a domain failure with a DynamoDB-style type identifier.
type Error struct {
	Type    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func validationError(format string, args ...any) *Error {
	return &Error{Type: ErrTypeValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *Error {
	return &Error{Type: ErrTypeNotFound, Message: fmt.Sprintf(format, args...)}
}
