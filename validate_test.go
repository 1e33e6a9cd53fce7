package tabletalk_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mhalter/tabletalk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userText(text string) tabletalk.UserMessage {
	return tabletalk.UserMessage{Content: []tabletalk.ContentBlock{tabletalk.TextBlock{Text: text}}}
}

func assistantToolCall(id, name string) tabletalk.AssistantMessage {
	return tabletalk.AssistantMessage{Content: []tabletalk.ContentBlock{
		tabletalk.ToolCallBlock{ID: id, Name: name, Arguments: json.RawMessage(`{}`)},
	}}
}

func toolResult(id, text string) tabletalk.ToolResultMessage {
	return tabletalk.ToolResultMessage{
		ToolCallID: id,
		Content:    []tabletalk.ContentBlock{tabletalk.TextBlock{Text: text}},
	}
}

func TestValidateMessage(t *testing.T) {
	t.Parallel()

	t.Run("user message with text is valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, tabletalk.ValidateMessage(userText("hi")))
	})

	t.Run("tool call in user message is invalid", func(t *testing.T) {
		t.Parallel()
		msg := tabletalk.UserMessage{Content: []tabletalk.ContentBlock{
			tabletalk.ToolCallBlock{ID: "1", Name: "query"},
		}}
		err := tabletalk.ValidateMessage(msg)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tabletalk.ErrValidation))
	})

	t.Run("assistant may carry text and tool calls", func(t *testing.T) {
		t.Parallel()
		msg := tabletalk.AssistantMessage{Content: []tabletalk.ContentBlock{
			tabletalk.TextBlock{Text: "let me check"},
			tabletalk.ToolCallBlock{ID: "1", Name: "list_tables"},
		}}
		assert.NoError(t, tabletalk.ValidateMessage(msg))
	})
}

func TestValidateExchange(t *testing.T) {
	t.Parallel()

	t.Run("follow-up exchange shape is valid", func(t *testing.T) {
		t.Parallel()
		msgs := []tabletalk.Message{
			userText("list all tables"),
			assistantToolCall("tu_1", "list_tables"),
			toolResult("tu_1", `{"success":true}`),
		}
		assert.NoError(t, tabletalk.ValidateExchange(msgs))
	})

	t.Run("tool result id must match the pending call", func(t *testing.T) {
		t.Parallel()
		msgs := []tabletalk.Message{
			userText("q"),
			assistantToolCall("tu_1", "scan"),
			toolResult("tu_other", "nope"),
		}
		err := tabletalk.ValidateExchange(msgs)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tabletalk.ErrValidation))
	})

	t.Run("two consecutive user messages are invalid", func(t *testing.T) {
		t.Parallel()
		msgs := []tabletalk.Message{userText("a"), userText("b")}
		assert.Error(t, tabletalk.ValidateExchange(msgs))
	})

	t.Run("assistant before unanswered tool call is invalid", func(t *testing.T) {
		t.Parallel()
		msgs := []tabletalk.Message{
			userText("q"),
			assistantToolCall("tu_1", "scan"),
			userText("meanwhile"),
		}
		assert.Error(t, tabletalk.ValidateExchange(msgs))
	})

	t.Run("unanswered trailing tool call is invalid", func(t *testing.T) {
		t.Parallel()
		msgs := []tabletalk.Message{
			userText("q"),
			assistantToolCall("tu_1", "scan"),
		}
		assert.Error(t, tabletalk.ValidateExchange(msgs))
	})

	t.Run("multiple tool results share one user slot", func(t *testing.T) {
		t.Parallel()
		assistant := tabletalk.AssistantMessage{Content: []tabletalk.ContentBlock{
			tabletalk.ToolCallBlock{ID: "tu_1", Name: "query"},
			tabletalk.ToolCallBlock{ID: "tu_2", Name: "scan"},
		}}
		msgs := []tabletalk.Message{
			userText("q"),
			assistant,
			toolResult("tu_1", "r1"),
			toolResult("tu_2", "r2"),
			tabletalk.AssistantMessage{Content: []tabletalk.ContentBlock{tabletalk.TextBlock{Text: "done"}}},
		}
		assert.NoError(t, tabletalk.ValidateExchange(msgs))
	})
}
