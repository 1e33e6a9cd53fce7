package json

import (
	"fmt"
	"time"

	"github.com/mhalter/tabletalk"
)

// messageDTO is the JSON representation of a Message with a type discriminator.
type messageDTO struct {
	Type       string         `json:"type"`
	Content    []contentBlock `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	StopReason *string        `json:"stop_reason,omitempty"`
	Usage      *usageDTO      `json:"usage,omitempty"`
	ToolCallID *string        `json:"tool_call_id,omitempty"`
	ToolName   *string        `json:"tool_name,omitempty"`
	IsError    *bool          `json:"is_error,omitempty"`
}

func marshalMessage(msg tabletalk.Message) (messageDTO, error) {
	switch m := msg.(type) {
	case tabletalk.UserMessage:
		blocks, err := marshalContentBlocks(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		return messageDTO{
			Type:      "user",
			Content:   blocks,
			Timestamp: m.Timestamp,
		}, nil
	case tabletalk.AssistantMessage:
		blocks, err := marshalContentBlocks(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		sr := string(m.StopReason)
		return messageDTO{
			Type:       "assistant",
			Content:    blocks,
			Timestamp:  m.Timestamp,
			StopReason: &sr,
			Usage:      &usageDTO{InputTokens: m.Usage.InputTokens, OutputTokens: m.Usage.OutputTokens},
		}, nil
	case tabletalk.ToolResultMessage:
		blocks, err := marshalContentBlocks(m.Content)
		if err != nil {
			return messageDTO{}, err
		}
		return messageDTO{
			Type:       "tool_result",
			Content:    blocks,
			Timestamp:  m.Timestamp,
			ToolCallID: &m.ToolCallID,
			ToolName:   &m.ToolName,
			IsError:    &m.IsError,
		}, nil
	default:
		return messageDTO{}, fmt.Errorf("unknown message type: %T", msg)
	}
}

func unmarshalMessage(dto messageDTO) (tabletalk.Message, error) {
	blocks, err := unmarshalContentBlocks(dto.Content)
	if err != nil {
		return nil, err
	}
	switch dto.Type {
	case "user":
		return tabletalk.UserMessage{
			Content:   blocks,
			Timestamp: dto.Timestamp,
		}, nil
	case "assistant":
		var sr tabletalk.StopReason
		if dto.StopReason != nil {
			sr = tabletalk.StopReason(*dto.StopReason)
		}
		var usage tabletalk.Usage
		if dto.Usage != nil {
			usage = tabletalk.Usage{InputTokens: dto.Usage.InputTokens, OutputTokens: dto.Usage.OutputTokens}
		}
		return tabletalk.AssistantMessage{
			Content:    blocks,
			StopReason: sr,
			Usage:      usage,
			Timestamp:  dto.Timestamp,
		}, nil
	case "tool_result":
		var toolCallID, toolName string
		if dto.ToolCallID != nil {
			toolCallID = *dto.ToolCallID
		}
		if dto.ToolName != nil {
			toolName = *dto.ToolName
		}
		var isError bool
		if dto.IsError != nil {
			isError = *dto.IsError
		}
		return tabletalk.ToolResultMessage{
			ToolCallID: toolCallID,
			ToolName:   toolName,
			Content:    blocks,
			IsError:    isError,
			Timestamp:  dto.Timestamp,
		}, nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", dto.Type)
	}
}
