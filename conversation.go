package tabletalk

import "time"

// Conversation is the append-only message history for one logical
// conversation. Messages are owned by the conversation once appended and
// must not be mutated afterwards.
//
// A Conversation is not safe for concurrent use. The orchestrator mutates it
// only during stateful turns; callers running turns concurrently against the
// same instance must serialize them, or construct one instance per request
// and Clear it before use.
type Conversation struct {
	ID           string
	SystemPrompt string
	messages     []Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewConversation creates an empty conversation.
func NewConversation(id, systemPrompt string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:           id,
		SystemPrompt: systemPrompt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Append adds messages to the history in order.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
	c.UpdatedAt = time.Now()
}

// Messages returns a copy of the history. The copy shares the underlying
// Message values, which are immutable once appended.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len reports the number of messages in the history.
func (c *Conversation) Len() int { return len(c.messages) }

// Clear drops the entire history. Used by request-scoped callers to avoid
// leaking state between unrelated turns sharing an instance.
func (c *Conversation) Clear() {
	c.messages = nil
	c.UpdatedAt = time.Now()
}

// Restore replaces the history wholesale, for session resume.
func (c *Conversation) Restore(msgs []Message) {
	c.messages = make([]Message, len(msgs))
	copy(c.messages, msgs)
	c.UpdatedAt = time.Now()
}
