package models

import "encoding/json"

// Message is one role-tagged entry of a conversation. Role and Content are a loose typed view: they are
// filled only when the browser sent them as strings. Raw keeps the message exactly as received so it can
// be forwarded unchanged, extra fields and non-string content included.
type Message struct {
	Role    Role
	Content string

	// Raw is the message as decoded from the browser. It is empty for messages built in code.
	Raw json.RawMessage
}

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant represents a reply produced by the model.
	RoleAssistant Role = "assistant"
	// RoleSystem represents the configured system prompt. The browser never sends it.
	RoleSystem Role = "system"
)

type typedMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RelayResult is the payload returned to the browser for every chat call. Success and failure share
// the same shape; they differ only by Status and by the content of Reply.
type RelayResult struct {
	Reply  string `json:"reply"`
	Status int    `json:"-"`
}

// UnmarshalJSON keeps any JSON value. No validation is applied, so a message that is not an object, or
// whose fields are not strings, decodes without error and leaves the typed view empty.
func (m *Message) UnmarshalJSON(data []byte) error {
	m.Raw = append(json.RawMessage(nil), data...)
	m.Role = ""
	m.Content = ""

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	var role, content string
	if err := json.Unmarshal(fields["role"], &role); err == nil {
		m.Role = Role(role)
	}
	if err := json.Unmarshal(fields["content"], &content); err == nil {
		m.Content = content
	}
	return nil
}

// MarshalJSON writes Raw when the message came from the browser, otherwise the role and content.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	return json.Marshal(typedMessage{Role: m.Role, Content: m.Content})
}

// WithSystemPrompt returns messages prefixed with a system message carrying prompt. When prompt is
// empty the messages are returned as is.
func WithSystemPrompt(prompt string, messages []Message) []Message {
	if prompt == "" {
		return messages
	}
	msgs := make([]Message, 0, len(messages)+1)
	msgs = append(msgs, Message{Role: RoleSystem, Content: prompt})
	return append(msgs, messages...)
}
