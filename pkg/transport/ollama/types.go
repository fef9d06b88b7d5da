package ollama

import "time"

// wireMessage is a single message in an Ollama chat request or response.
type wireMessage struct {
	Role    string `json:"role"`    // "user", "assistant"
	Content string `json:"content"` // The message content
}

// Options contains model inference parameters.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"` // Creativity (0.0-2.0)
	TopP        *float64 `json:"top_p,omitempty"`       // Nucleus sampling threshold
	NumPredict  *int     `json:"num_predict,omitempty"` // Max tokens to generate
	NumCtx      *int     `json:"num_ctx,omitempty"`     // Context window size
}

// chatRequest is an Ollama /api/chat request.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   *bool         `json:"stream,omitempty"` // Ollama defaults to streaming
	Options  *Options      `json:"options,omitempty"`
}

// chatResponse is a non-streaming Ollama /api/chat response.
type chatResponse struct {
	Model     string      `json:"model"`
	CreatedAt time.Time   `json:"created_at"`
	Message   wireMessage `json:"message"`
	Done      bool        `json:"done"`

	TotalDuration int64 `json:"total_duration,omitempty"` // Total time in nanoseconds
	EvalCount     int   `json:"eval_count,omitempty"`     // Generated tokens
}
