package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mhalter/tabletalk"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ tabletalk.Provider = (*Client)(nil)

// Client implements [tabletalk.Provider] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client: gc,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Invoke submits the request and returns the complete assistant message.
func (c *Client) Invoke(ctx context.Context, req tabletalk.Request) (tabletalk.AssistantMessage, error) {
	if err := req.Validate(); err != nil {
		return tabletalk.AssistantMessage{}, fmt.Errorf("gemini: %w", err)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	contents := ConvertMessages(req.Messages)
	config := buildConfig(req)

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return tabletalk.AssistantMessage{}, fmt.Errorf("gemini: %w", err)
	}
	return ConvertResponse(resp)
}

func buildConfig(req tabletalk.Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Tools:           ConvertTools(req.Tools),
	}

	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	if req.TopP != nil {
		topP := float32(*req.TopP)
		config.TopP = &topP
	}
	if req.TopK != nil {
		topK := float32(*req.TopK)
		config.TopK = &topK
	}
	if len(req.StopSequences) > 0 {
		config.StopSequences = req.StopSequences
	}

	return config
}

// ConvertMessages converts tabletalk Messages to genai Contents.
// Exported for testing.
func ConvertMessages(msgs []tabletalk.Message) []*genai.Content {
	var result []*genai.Content
	for _, msg := range msgs {
		switch m := msg.(type) {
		case tabletalk.UserMessage:
			result = append(result, &genai.Content{
				Role:  "user",
				Parts: convertParts(m.Content),
			})
		case tabletalk.AssistantMessage:
			result = append(result, &genai.Content{
				Role:  "model",
				Parts: convertParts(m.Content),
			})
		case tabletalk.ToolResultMessage:
			text := extractText(m.Content)
			var responseMap map[string]any
			if m.IsError {
				responseMap = map[string]any{"error": text}
			} else {
				responseMap = map[string]any{"output": text}
			}
			result = append(result, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       m.ToolCallID,
						Name:     m.ToolName,
						Response: responseMap,
					},
				}},
			})
		}
	}
	return result
}

func convertParts(blocks []tabletalk.ContentBlock) []*genai.Part {
	var parts []*genai.Part
	for _, b := range blocks {
		switch bl := b.(type) {
		case tabletalk.TextBlock:
			parts = append(parts, &genai.Part{Text: bl.Text})
		case tabletalk.ToolCallBlock:
			// Arguments is json.RawMessage — always valid JSON from domain types.
			var args map[string]any
			_ = json.Unmarshal(bl.Arguments, &args)
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   bl.ID,
					Name: bl.Name,
					Args: args,
				},
			})
		}
	}
	return parts
}

// extractText returns the text of the first TextBlock, or empty string if none.
func extractText(blocks []tabletalk.ContentBlock) string {
	for _, b := range blocks {
		if tb, ok := b.(tabletalk.TextBlock); ok {
			return tb.Text
		}
	}
	return ""
}

// ConvertTools converts tabletalk Tools to genai Tools.
// Exported for testing.
func ConvertTools(tools []tabletalk.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		// InputSchema is json.RawMessage — always valid JSON from domain types.
		var schema map[string]any
		_ = json.Unmarshal(t.InputSchema, &schema)
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: schema,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ConvertResponse converts a genai response to an assistant message.
// Exported for testing.
func ConvertResponse(resp *genai.GenerateContentResponse) (tabletalk.AssistantMessage, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return tabletalk.AssistantMessage{}, fmt.Errorf("gemini: response has no candidates")
	}
	cand := resp.Candidates[0]

	var blocks []tabletalk.ContentBlock
	for i, part := range cand.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return tabletalk.AssistantMessage{}, fmt.Errorf("gemini: marshal function call args: %w", err)
			}
			id := part.FunctionCall.ID
			if id == "" {
				// Gemini omits call IDs; synthesize stable ones for correlation.
				id = fmt.Sprintf("%s-%d", part.FunctionCall.Name, i)
			}
			blocks = append(blocks, tabletalk.ToolCallBlock{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		case part.Text != "" && !part.Thought:
			blocks = append(blocks, tabletalk.TextBlock{Text: part.Text})
		}
	}

	msg := tabletalk.AssistantMessage{
		Content:    blocks,
		StopReason: convertFinishReason(cand.FinishReason, blocks),
		Timestamp:  time.Now(),
	}
	if resp.UsageMetadata != nil {
		msg.Usage = tabletalk.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return msg, nil
}

func convertFinishReason(fr genai.FinishReason, blocks []tabletalk.ContentBlock) tabletalk.StopReason {
	// Gemini reports STOP even when the turn ends on a function call.
	for _, b := range blocks {
		if _, ok := b.(tabletalk.ToolCallBlock); ok {
			return tabletalk.StopToolUse
		}
	}
	switch fr {
	case genai.FinishReasonStop:
		return tabletalk.StopEndTurn
	case genai.FinishReasonMaxTokens:
		return tabletalk.StopLength
	default:
		return tabletalk.StopUnknown
	}
}
