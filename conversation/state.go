package conversation

import (
	"fmt"

	"github.com/papercomputeco/gemchat/pkg/llm"
)

// Status is the controller's request status.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StatusIdle
	case "loading":
		*s = StatusLoading
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	// ConversationID changes every time the conversation is reset.
	ConversationID string `json:"conversation_id"`

	// Messages in conversation order (oldest first).
	Messages []llm.Message `json:"messages"`

	Status  Status `json:"status"`
	Loading bool   `json:"loading"`

	// Error is the transient, user-facing error text; empty when clear.
	Error string `json:"error"`

	// Head is the content hash of the conversation so far; empty when there are no messages.
	Head string `json:"head"`

	// Version increases by one with every observable change.
	Version uint64 `json:"version"`
}
