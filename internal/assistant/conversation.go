package assistant

import "strings"

// Prompt role labels used when serializing a conversation for the
// backend.
const (
	promptLabelUser      = "User"
	promptLabelAssistant = "Assistant"
)

// Default conversation bounds. The message cap keeps the history short;
// the character budget bounds the serialized prompt text.
const (
	DefaultMaxMessages = 20
	DefaultCharBudget  = 8000
)

// Conversation is the ordered message history of one mode. It is
// exclusively owned by that mode; switching modes migrates messages
// between conversations, never shares them.
//
// Conversation is not safe for concurrent use; the controller
// serializes access.
type Conversation struct {
	messages    []Message
	maxMessages int
	charBudget  int
}

// NewConversation returns an empty conversation with the given bounds.
// Non-positive bounds fall back to the defaults.
func NewConversation(maxMessages, charBudget int) *Conversation {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if charBudget <= 0 {
		charBudget = DefaultCharBudget
	}
	return &Conversation{
		maxMessages: maxMessages,
		charBudget:  charBudget,
	}
}

// Append adds a message and trims the history to the configured bounds.
func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, m)
	c.trim()
}

// AppendUser appends an included user message carrying a copy of the
// given attachments.
func (c *Conversation) AppendUser(text string, attachments []Attachment) {
	var copied []Attachment
	if len(attachments) > 0 {
		copied = append(copied, attachments...)
	}
	c.Append(Message{
		Role:            RoleUser,
		Text:            text,
		Attachments:     copied,
		IncludeInPrompt: true,
	})
}

// AppendAssistant appends an included assistant message.
func (c *Conversation) AppendAssistant(text string) {
	c.Append(Message{
		Role:            RoleAssistant,
		Text:            text,
		IncludeInPrompt: true,
	})
}

// UpsertAssistant replaces the text of the last message if it is an
// assistant message, otherwise appends a new one. Streaming updates use
// this so incremental narration keeps rewriting one history entry
// instead of appending a message per chunk.
func (c *Conversation) UpsertAssistant(text string) {
	if n := len(c.messages); n > 0 && c.messages[n-1].Role == RoleAssistant {
		c.messages[n-1].Text = text
		return
	}
	c.AppendAssistant(text)
}

// ExcludeLastUserMessage finds the most recent user message with the
// given text and flips its IncludeInPrompt flag to false. The message
// stays visible in the history. Returns false if no match was found.
func (c *Conversation) ExcludeLastUserMessage(text string) bool {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleUser && c.messages[i].Text == text {
			c.messages[i].IncludeInPrompt = false
			return true
		}
	}
	return false
}

// RemoveLastUserMessage removes and returns the most recent user message
// with the given text, preserving its attachments. Used when migrating a
// pending message to the other mode's conversation.
func (c *Conversation) RemoveLastUserMessage(text string) (Message, bool) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleUser && c.messages[i].Text == text {
			m := c.messages[i]
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return m, true
		}
	}
	return Message{}, false
}

// SerializeForPrompt joins the included messages as "{label}: {text}"
// lines. The result is bounded by the character budget via trimming at
// append time.
func (c *Conversation) SerializeForPrompt() string {
	var sb strings.Builder
	for _, m := range c.messages {
		if !m.IncludeInPrompt {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(promptLabel(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Text)
	}
	return sb.String()
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the history.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Reset discards the history.
func (c *Conversation) Reset() {
	c.messages = nil
}

// trim drops the oldest messages until the message count is within the
// cap, then keeps dropping until the serialized prompt fits the
// character budget. Messages are never truncated mid-text; a single
// oversized message is allowed to stand alone.
func (c *Conversation) trim() {
	for len(c.messages) > c.maxMessages {
		c.messages = c.messages[1:]
	}
	for len(c.messages) > 1 && len(c.SerializeForPrompt()) > c.charBudget {
		c.messages = c.messages[1:]
	}
}

func promptLabel(r Role) string {
	if r == RoleAssistant {
		return promptLabelAssistant
	}
	return promptLabelUser
}
