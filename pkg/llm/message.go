// Package llm provides the provider-neutral representation of a chat
// conversation that the transport backends translate to their own wire shapes.
package llm

import "fmt"

// Role identifies who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// Message represents a single message in a conversation.
// Messages are values and are never modified once appended to a conversation.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// NewUserMessage creates a message authored by the user.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// NewModelMessage creates a message authored by the model.
func NewModelMessage(text string) Message {
	return Message{Role: RoleModel, Text: text}
}

func (m Message) String() string {
	return fmt.Sprintf("[%s]: %s", m.Role, m.Text)
}
