package bedrock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mhalter/tabletalk"
)

// Interface compliance check.
var _ tabletalk.Provider = (*Client)(nil)

// Client implements [tabletalk.Provider] over the Bedrock runtime invoke
// endpoint.
type Client struct {
	apiKey           string
	baseURL          string
	model            string
	inferenceProfile string
	httpClient       *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the runtime endpoint. Useful for testing with httptest.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithModel sets the default model identifier.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithInferenceProfile targets an inference profile instead of a direct
// model identifier. The profile replaces the model in the URL path.
func WithInferenceProfile(profile string) Option {
	return func(c *Client) { c.inferenceProfile = profile }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Bedrock [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Invoke submits the request and returns the complete assistant message.
func (c *Client) Invoke(ctx context.Context, req tabletalk.Request) (tabletalk.AssistantMessage, error) {
	if err := req.Validate(); err != nil {
		return tabletalk.AssistantMessage{}, fmt.Errorf("bedrock: %w", err)
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return tabletalk.AssistantMessage{}, fmt.Errorf("bedrock: %w", err)
	}

	endpoint := c.baseURL + "/model/" + url.PathEscape(c.target(req.Model)) + "/invoke"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return tabletalk.AssistantMessage{}, fmt.Errorf("bedrock: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return tabletalk.AssistantMessage{}, fmt.Errorf("bedrock: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tabletalk.AssistantMessage{}, parseHTTPError(resp)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return tabletalk.AssistantMessage{}, fmt.Errorf("bedrock: decode response: %w", err)
	}
	return convertResponse(apiResp), nil
}

// target picks the URL path identifier: the per-request model when set,
// otherwise the configured inference profile, otherwise the default model.
func (c *Client) target(model string) string {
	if model != "" {
		return model
	}
	if c.inferenceProfile != "" {
		return c.inferenceProfile
	}
	return c.model
}

func (c *Client) buildRequest(req tabletalk.Request) apiRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	stop := req.StopSequences
	if stop == nil {
		stop = []string{}
	}
	return apiRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		TopK:             req.TopK,
		TopP:             req.TopP,
		Temperature:      req.Temperature,
		StopSequences:    stop,
		System:           req.SystemPrompt,
		Messages:         convertMessages(req.Messages),
		Tools:            convertTools(req.Tools),
	}
}

func convertMessages(msgs []tabletalk.Message) []apiMessage {
	var result []apiMessage
	for _, msg := range msgs {
		switch m := msg.(type) {
		case tabletalk.UserMessage:
			result = append(result, apiMessage{Role: "user", Content: convertBlocks(m.Content)})
		case tabletalk.AssistantMessage:
			result = append(result, apiMessage{Role: "assistant", Content: convertBlocks(m.Content)})
		case tabletalk.ToolResultMessage:
			block := apiContentBlock{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   convertBlocks(m.Content),
				IsError:   m.IsError,
			}
			// Consecutive tool results share one user message on the wire.
			if n := len(result); n > 0 && result[n-1].Role == "user" && isToolResult(result[n-1]) {
				result[n-1].Content = append(result[n-1].Content, block)
			} else {
				result = append(result, apiMessage{Role: "user", Content: []apiContentBlock{block}})
			}
		}
	}
	return result
}

func isToolResult(msg apiMessage) bool {
	return len(msg.Content) > 0 && msg.Content[0].Type == "tool_result"
}

func convertBlocks(blocks []tabletalk.ContentBlock) []apiContentBlock {
	result := make([]apiContentBlock, 0, len(blocks))
	for _, b := range blocks {
		switch bl := b.(type) {
		case tabletalk.TextBlock:
			result = append(result, apiContentBlock{Type: "text", Text: bl.Text})
		case tabletalk.ToolCallBlock:
			result = append(result, apiContentBlock{Type: "tool_use", ID: bl.ID, Name: bl.Name, Input: bl.Arguments})
		}
	}
	return result
}

func convertTools(tools []tabletalk.Tool) []apiTool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]apiTool, len(tools))
	for i, t := range tools {
		schema := t.InputSchema
		if schema == nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		result[i] = apiTool{Name: t.Name, Description: t.Description, InputSchema: schema}
	}
	return result
}

func convertResponse(resp apiResponse) tabletalk.AssistantMessage {
	var blocks []tabletalk.ContentBlock
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			blocks = append(blocks, tabletalk.TextBlock{Text: b.Text})
		case "tool_use":
			blocks = append(blocks, tabletalk.ToolCallBlock{ID: b.ID, Name: b.Name, Arguments: b.Input})
		}
	}
	return tabletalk.AssistantMessage{
		Content:    blocks,
		StopReason: convertStopReason(resp.StopReason),
		Usage: tabletalk.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
		Timestamp: time.Now(),
	}
}

func convertStopReason(s string) tabletalk.StopReason {
	switch s {
	case "end_turn", "stop_sequence":
		return tabletalk.StopEndTurn
	case "max_tokens":
		return tabletalk.StopLength
	case "tool_use":
		return tabletalk.StopToolUse
	default:
		return tabletalk.StopUnknown
	}
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("bedrock: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
		return fmt.Errorf("bedrock: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("bedrock: %s: %s", apiErr.Type, apiErr.Message)
}
