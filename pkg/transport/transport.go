// Package transport defines how a conversation reaches a hosted model: one
// Send call per prompt, returning either the generated text or a *Failure.
package transport

import (
	"context"

	"github.com/papercomputeco/gemchat/pkg/llm"
)

// EmptyResponseText is returned in place of a reply when a call succeeds but
// the model produced no text.
const EmptyResponseText = "The model returned an empty response."

// Sender issues exactly one outbound call per Send. history is the full
// conversation in order; when its last entry is the user message for prompt,
// backends send that entry as the prompt turn rather than sending it twice.
type Sender interface {
	Send(ctx context.Context, prompt string, history []llm.Message) (string, error)
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, prompt string, history []llm.Message) (string, error)

func (f SenderFunc) Send(ctx context.Context, prompt string, history []llm.Message) (string, error) {
	return f(ctx, prompt, history)
}

// PriorTurns returns history without its trailing entry when that entry is the
// user message carrying prompt.
func PriorTurns(prompt string, history []llm.Message) []llm.Message {
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Role == llm.RoleUser && last.Text == prompt {
			return history[:n-1]
		}
	}
	return history
}

// OrEmptyFallback returns text, or EmptyResponseText when text is empty.
func OrEmptyFallback(text string) string {
	if text == "" {
		return EmptyResponseText
	}
	return text
}
