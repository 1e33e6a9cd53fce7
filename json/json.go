// Package json persists conversations as versioned JSON envelopes.
//
// The v1 envelope carries conversation metadata plus type-discriminated
// message and content-block DTOs, so the sealed domain types survive a
// round trip through files.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mhalter/tabletalk"
)

// envelope is the v1 wire format for a persisted conversation.
type envelope struct {
	Version      int          `json:"version"`
	ID           string       `json:"id"`
	SystemPrompt string       `json:"system_prompt"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Messages     []messageDTO `json:"messages"`
}

// MarshalConversation serializes a conversation in v1 envelope format.
func MarshalConversation(c *tabletalk.Conversation) ([]byte, error) {
	msgs := c.Messages()
	env := envelope{
		Version:      1,
		ID:           c.ID,
		SystemPrompt: c.SystemPrompt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Messages:     make([]messageDTO, len(msgs)),
	}
	for i, msg := range msgs {
		dto, err := marshalMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		env.Messages[i] = dto
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalConversation deserializes a conversation from v1 envelope format.
func UnmarshalConversation(data []byte) (*tabletalk.Conversation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	msgs := make([]tabletalk.Message, len(env.Messages))
	for i, dto := range env.Messages {
		msg, err := unmarshalMessage(dto)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		msgs[i] = msg
	}
	conv := tabletalk.NewConversation(env.ID, env.SystemPrompt)
	conv.CreatedAt = env.CreatedAt
	conv.Restore(msgs)
	conv.UpdatedAt = env.UpdatedAt
	return conv, nil
}

// Save writes a conversation to a JSON file, creating parent directories
// as needed.
func Save(path string, c *tabletalk.Conversation) error {
	data, err := MarshalConversation(c)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a conversation from a JSON file.
func Load(path string) (*tabletalk.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalConversation(data)
}
