package tabletalk

import (
	"context"
	"encoding/json"
)

// Tool is the schema sent to the LLM describing a tool's capabilities.
// Name is the backend's original name; the registry produces the sanitized
// rendering attached to model requests.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// ToolExecutor runs tools against the backend. Execute returns error for
// infrastructure failures. ToolResult.IsError indicates backend-reported
// domain failures sent back to the LLM.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error)
}

// ToolResult represents the outcome of a tool execution.
type ToolResult struct {
	Content []ContentBlock
	IsError bool
}
