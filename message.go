package deltabot

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent by the client.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Normalize lower-cases and trims the role. Roles other than user and
// assistant are kept as-is so callers can decide to skip them.
func (m Message) Normalize() Message {
	m.Role = Role(strings.ToLower(strings.TrimSpace(string(m.Role))))
	return m
}

func (m Message) IsUser() bool {
	return m.Normalize().Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Normalize().Role == RoleAssistant
}
