// Package ollama sends conversations to an Ollama-compatible /api/chat upstream.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/gemchat/pkg/llm"
	"github.com/papercomputeco/gemchat/pkg/transport"
)

// Backend is the name reported on failures from this package.
const Backend = "ollama"

const (
	DefaultUpstreamURL = "http://localhost:11434"
	DefaultModel       = "llama3.2"
)

// Config configures the Ollama backend.
type Config struct {
	// Upstream LLM provider URL (e.g., "http://localhost:11434")
	UpstreamURL string

	Model string

	// Options are passed through on every request when set.
	Options *Options

	// Timeout bounds a single request. Zero means the HTTP client default.
	Timeout time.Duration
}

// Sender implements transport.Sender against an Ollama upstream.
type Sender struct {
	config     Config
	logger     *zap.Logger
	httpClient *http.Client
}

var _ transport.Sender = (*Sender)(nil)

// New creates a Sender.
func New(config Config, logger *zap.Logger) *Sender {
	if config.UpstreamURL == "" {
		config.UpstreamURL = DefaultUpstreamURL
	}
	config.UpstreamURL = strings.TrimRight(config.UpstreamURL, "/")
	if config.Model == "" {
		config.Model = DefaultModel
	}

	return &Sender{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Model returns the model name requests are sent to.
func (s *Sender) Model() string {
	return s.config.Model
}

// Send forwards one non-streaming chat request upstream.
func (s *Sender) Send(ctx context.Context, prompt string, history []llm.Message) (string, error) {
	resp, err := s.forwardRequest(ctx, s.buildRequest(prompt, history))
	if err != nil {
		return "", transport.NewFailure(Backend, err)
	}

	s.logger.Debug("received response from upstream",
		zap.String("model", resp.Model),
		zap.Int("eval_count", resp.EvalCount),
	)

	return transport.OrEmptyFallback(resp.Message.Content), nil
}

func (s *Sender) buildRequest(prompt string, history []llm.Message) *chatRequest {
	prior := transport.PriorTurns(prompt, history)

	msgs := make([]wireMessage, 0, len(prior)+1)
	for _, m := range prior {
		msgs = append(msgs, wireMessage{Role: wireRole(m.Role), Content: m.Text})
	}
	msgs = append(msgs, wireMessage{Role: "user", Content: prompt})

	streaming := false
	return &chatRequest{
		Model:    s.config.Model,
		Messages: msgs,
		Stream:   &streaming,
		Options:  s.config.Options,
	}
}

func (s *Sender) forwardRequest(ctx context.Context, req *chatRequest) (*chatResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	upstreamURL := s.config.UpstreamURL + "/api/chat"
	s.logger.Debug("forwarding request to upstream",
		zap.String("url", upstreamURL),
		zap.Int("message_count", len(req.Messages)),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &resp, nil
}

func wireRole(r llm.Role) string {
	if r == llm.RoleModel {
		return "assistant"
	}
	return "user"
}
