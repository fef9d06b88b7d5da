// Package gemini sends conversations to the Gemini API through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/papercomputeco/gemchat/pkg/llm"
	"github.com/papercomputeco/gemchat/pkg/transport"
)

// Backend is the name reported on failures from this package.
const Backend = "gemini"

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini API key is required")

// Config configures the Gemini backend.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint (e.g. a local test server or a gateway).
	BaseURL string
}

// Sender implements transport.Sender against the Gemini API.
type Sender struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

var _ transport.Sender = (*Sender)(nil)

// New creates a Sender. The API key is static for the life of the Sender.
func New(ctx context.Context, config Config, logger *zap.Logger) (*Sender, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      config.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: config.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Sender{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Model returns the model name requests are sent to.
func (s *Sender) Model() string {
	return s.model
}

// Send issues one generateContent call with the prior turns as history and
// prompt as the final user turn.
func (s *Sender) Send(ctx context.Context, prompt string, history []llm.Message) (string, error) {
	contents := makeContents(transport.PriorTurns(prompt, history))
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	s.logger.Debug("sending generate request",
		zap.String("model", s.model),
		zap.Int("content_count", len(contents)),
	)

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		s.logger.Debug("generate request failed", zap.String("model", s.model), zap.Error(err))
		return "", transport.NewFailure(Backend, err)
	}

	return transport.OrEmptyFallback(resp.Text()), nil
}

func roleToGeminiRole(r llm.Role) genai.Role {
	if r == llm.RoleModel {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func makeContents(msgs []llm.Message) []*genai.Content {
	res := make([]*genai.Content, 0, len(msgs)+1)
	for _, m := range msgs {
		res = append(res, genai.NewContentFromText(m.Text, roleToGeminiRole(m.Role)))
	}
	return res
}
