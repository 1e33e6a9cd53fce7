// Package bedrock implements [tabletalk.Provider] for Anthropic models
// served through the Bedrock runtime HTTP API.
//
// The invocation is the non-streaming invoke shape: the full request body
// carries the anthropic_version marker and sampling parameters, and the
// model identifier travels in the URL path. When an inference profile is
// configured it replaces the model identifier in the path; it never appears
// in the body.
package bedrock

import "encoding/json"

const (
	defaultBaseURL   = "https://bedrock-runtime.us-east-1.amazonaws.com"
	defaultModel     = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	defaultMaxTokens = 2048
	anthropicVersion = "bedrock-2023-05-31"
)

// apiRequest is the JSON body for the invoke call.
type apiRequest struct {
	AnthropicVersion string       `json:"anthropic_version"`
	MaxTokens        int          `json:"max_tokens"`
	TopK             *int         `json:"top_k,omitempty"`
	TopP             *float64     `json:"top_p,omitempty"`
	Temperature      *float64     `json:"temperature,omitempty"`
	StopSequences    []string     `json:"stop_sequences"`
	System           string       `json:"system,omitempty"`
	Messages         []apiMessage `json:"messages"`
	Tools            []apiTool    `json:"tools,omitempty"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

// apiContentBlock is the union wire form; fields populate per Type.
type apiContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string            `json:"tool_use_id,omitempty"`
	Content   []apiContentBlock `json:"content,omitempty"`
	IsError   bool              `json:"is_error,omitempty"`
}

type apiTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// apiResponse is the invoke response body.
type apiResponse struct {
	ID         string            `json:"id"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	StopReason string            `json:"stop_reason"`
	Usage      apiUsage          `json:"usage"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// apiErrorResponse is the body returned on non-200 responses.
type apiErrorResponse struct {
	Message string `json:"message"`
	Type    string `json:"__type"`
}
