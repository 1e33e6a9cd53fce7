package tabletalk

import "fmt"

// ValidateMessage checks that a message's content blocks are valid for its role.
func ValidateMessage(msg Message) error {
	switch m := msg.(type) {
	case UserMessage:
		return validateBlocks(m.Content, m.Role(), allowText)
	case AssistantMessage:
		return validateBlocks(m.Content, m.Role(), allowText|allowToolCall)
	case ToolResultMessage:
		return validateBlocks(m.Content, m.Role(), allowText)
	default:
		return fmt.Errorf("unknown message type %T: %w", msg, ErrValidation)
	}
}

// ValidateExchange checks the wire-ordering invariants the model API
// enforces: top-level roles strictly alternate user/assistant (a tool-result
// message occupies a user slot), and every tool call is answered by exactly
// one tool result with a matching ID before the next assistant message.
func ValidateExchange(msgs []Message) error {
	pending := map[string]bool{} // tool call IDs awaiting a result
	wantUser := true

	for i, msg := range msgs {
		isUserSlot := msg.Role() == RoleUser || msg.Role() == RoleToolResult
		if isUserSlot != wantUser {
			return fmt.Errorf("message %d: expected %s slot, got %s: %w",
				i, slotName(wantUser), msg.Role(), ErrValidation)
		}

		switch m := msg.(type) {
		case AssistantMessage:
			if len(pending) > 0 {
				return fmt.Errorf("message %d: assistant message before %d tool result(s): %w",
					i, len(pending), ErrValidation)
			}
			for _, b := range m.Content {
				if tc, ok := b.(ToolCallBlock); ok {
					pending[tc.ID] = true
				}
			}
		case ToolResultMessage:
			if !pending[m.ToolCallID] {
				return fmt.Errorf("message %d: tool result %q has no pending tool call: %w",
					i, m.ToolCallID, ErrValidation)
			}
			delete(pending, m.ToolCallID)
		}

		// Consecutive tool results share a single user slot on the wire.
		if i+1 < len(msgs) && msg.Role() == RoleToolResult && msgs[i+1].Role() == RoleToolResult {
			continue
		}
		wantUser = !wantUser
	}

	if len(pending) > 0 {
		return fmt.Errorf("exchange ends with %d unanswered tool call(s): %w", len(pending), ErrValidation)
	}
	return nil
}

func slotName(user bool) string {
	if user {
		return "user"
	}
	return "assistant"
}

type blockAllow uint8

const (
	allowText blockAllow = 1 << iota
	allowToolCall
)

func validateBlocks(blocks []ContentBlock, role Role, allowed blockAllow) error {
	for _, b := range blocks {
		switch b.(type) {
		case TextBlock:
			if allowed&allowText == 0 {
				return fmt.Errorf("TextBlock not allowed in %s message: %w", role, ErrValidation)
			}
		case ToolCallBlock:
			if allowed&allowToolCall == 0 {
				return fmt.Errorf("ToolCallBlock not allowed in %s message: %w", role, ErrValidation)
			}
		default:
			return fmt.Errorf("unknown content block type %T in %s message: %w", b, role, ErrValidation)
		}
	}
	return nil
}
