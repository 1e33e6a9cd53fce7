package bedrock_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mhalter/tabletalk"
	"github.com/mhalter/tabletalk/bedrock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invokeResponse(t *testing.T, w http.ResponseWriter, body map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestClient_Invoke_RequestShape(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		invokeResponse(t, w, map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "hello"}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 12, "output_tokens": 3},
		})
	}))
	defer srv.Close()

	temp, topP, topK := 0.0, 0.1, 5
	c := bedrock.New("key-123", bedrock.WithBaseURL(srv.URL))
	msg, err := c.Invoke(context.Background(), tabletalk.Request{
		Model:         "anthropic.claude-3-haiku-20240307-v1:0",
		SystemPrompt:  "Answer from the table store.",
		Messages:      []tabletalk.Message{tabletalk.UserMessage{Content: []tabletalk.ContentBlock{tabletalk.TextBlock{Text: "hi"}}}},
		Tools:         []tabletalk.Tool{{Name: "list_tables", Description: "List tables", InputSchema: json.RawMessage(`{"type":"object"}`)}},
		MaxTokens:     512,
		Temperature:   &temp,
		TopP:          &topP,
		TopK:          &topK,
		StopSequences: []string{},
	})
	require.NoError(t, err)

	assert.Equal(t, "/model/anthropic.claude-3-haiku-20240307-v1:0/invoke", gotPath)
	assert.Equal(t, "Bearer key-123", gotAuth)
	assert.Equal(t, "bedrock-2023-05-31", gotBody["anthropic_version"])
	assert.Equal(t, float64(512), gotBody["max_tokens"])
	assert.Equal(t, float64(0), gotBody["temperature"])
	assert.Equal(t, float64(0.1), gotBody["top_p"])
	assert.Equal(t, float64(5), gotBody["top_k"])
	assert.Equal(t, []any{}, gotBody["stop_sequences"])
	assert.Equal(t, "Answer from the table store.", gotBody["system"])

	tools, ok := gotBody["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, "list_tables", tools[0].(map[string]any)["name"])

	require.Len(t, msg.Content, 1)
	tb, ok := msg.Content[0].(tabletalk.TextBlock)
	require.True(t, ok)
	assert.Equal(t, "hello", tb.Text)
	assert.Equal(t, tabletalk.StopEndTurn, msg.StopReason)
	assert.Equal(t, 12, msg.Usage.InputTokens)
}

func TestClient_Invoke_InferenceProfileInPath(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		invokeResponse(t, w, map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "ok"}},
			"stop_reason": "end_turn",
		})
	}))
	defer srv.Close()

	c := bedrock.New("k", bedrock.WithBaseURL(srv.URL),
		bedrock.WithInferenceProfile("us.anthropic.claude-3-5-sonnet-20240620-v1:0"))
	_, err := c.Invoke(context.Background(), tabletalk.Request{
		Messages: []tabletalk.Message{tabletalk.UserMessage{Content: []tabletalk.ContentBlock{tabletalk.TextBlock{Text: "hi"}}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/model/us.anthropic.claude-3-5-sonnet-20240620-v1:0/invoke", gotPath)
	// The profile rides in the path only, never the body.
	for key := range gotBody {
		assert.NotContains(t, key, "profile")
	}
}

func TestClient_Invoke_ToolExchange(t *testing.T) {
	t.Parallel()

	var gotBody struct {
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type      string          `json:"type"`
				Text      string          `json:"text"`
				ID        string          `json:"id"`
				Name      string          `json:"name"`
				Input     json.RawMessage `json:"input"`
				ToolUseID string          `json:"tool_use_id"`
			} `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		invokeResponse(t, w, map[string]any{
			"content": []map[string]any{
				{"type": "tool_use", "id": "tu_9", "name": "query", "input": map[string]any{"tableName": "T"}},
			},
			"stop_reason": "tool_use",
		})
	}))
	defer srv.Close()

	exchange := []tabletalk.Message{
		tabletalk.UserMessage{Content: []tabletalk.ContentBlock{tabletalk.TextBlock{Text: "get alice and bob"}}},
		tabletalk.AssistantMessage{Content: []tabletalk.ContentBlock{
			tabletalk.ToolCallBlock{ID: "tu_1", Name: "get_item", Arguments: json.RawMessage(`{"k":"alice"}`)},
			tabletalk.ToolCallBlock{ID: "tu_2", Name: "get_item", Arguments: json.RawMessage(`{"k":"bob"}`)},
		}},
		tabletalk.ToolResultMessage{ToolCallID: "tu_1", Content: []tabletalk.ContentBlock{tabletalk.TextBlock{Text: "alice"}}},
		tabletalk.ToolResultMessage{ToolCallID: "tu_2", Content: []tabletalk.ContentBlock{tabletalk.TextBlock{Text: "bob"}}},
	}

	c := bedrock.New("k", bedrock.WithBaseURL(srv.URL))
	msg, err := c.Invoke(context.Background(), tabletalk.Request{Messages: exchange})
	require.NoError(t, err)

	// Both tool results merge into a single trailing user message.
	require.Len(t, gotBody.Messages, 3)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
	assert.Equal(t, "assistant", gotBody.Messages[1].Role)
	assert.Equal(t, "user", gotBody.Messages[2].Role)
	require.Len(t, gotBody.Messages[2].Content, 2)
	assert.Equal(t, "tool_result", gotBody.Messages[2].Content[0].Type)
	assert.Equal(t, "tu_1", gotBody.Messages[2].Content[0].ToolUseID)
	assert.Equal(t, "tu_2", gotBody.Messages[2].Content[1].ToolUseID)

	require.Len(t, msg.Content, 1)
	tc, ok := msg.Content[0].(tabletalk.ToolCallBlock)
	require.True(t, ok)
	assert.Equal(t, "tu_9", tc.ID)
	assert.Equal(t, "query", tc.Name)
	assert.Equal(t, tabletalk.StopToolUse, msg.StopReason)
}

func TestClient_Invoke_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"Too many requests","__type":"ThrottlingException"}`))
	}))
	defer srv.Close()

	c := bedrock.New("k", bedrock.WithBaseURL(srv.URL))
	_, err := c.Invoke(context.Background(), tabletalk.Request{
		Messages: []tabletalk.Message{tabletalk.UserMessage{Content: []tabletalk.ContentBlock{tabletalk.TextBlock{Text: "hi"}}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ThrottlingException")
	assert.Contains(t, err.Error(), "Too many requests")
}

func TestClient_Invoke_InvalidRequest(t *testing.T) {
	t.Parallel()

	temp := 3.0
	c := bedrock.New("k")
	_, err := c.Invoke(context.Background(), tabletalk.Request{Temperature: &temp})
	assert.ErrorIs(t, err, tabletalk.ErrValidation)
}
