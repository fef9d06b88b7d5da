// Package setup holds the pieces shared by every gemchat command: the
// persistent flags, config resolution, and construction of the transport and
// conversation controller.
package setup

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/gemchat/conversation"
	"github.com/papercomputeco/gemchat/pkg/config"
	"github.com/papercomputeco/gemchat/pkg/transport"
	"github.com/papercomputeco/gemchat/pkg/transport/gemini"
	"github.com/papercomputeco/gemchat/pkg/transport/ollama"
)

// Flags are the persistent flags on the root command.
type Flags struct {
	ConfigPath string
	APIKey     string
	Model      string
	Backend    string
	Debug      bool
}

// Bind registers the flags as persistent flags on cmd.
func (f *Flags) Bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.ConfigPath, "config", "", "Path to config file (default ~/.gemchat/config.toml)")
	flags.StringVar(&f.APIKey, "api-key", "", "Gemini API key")
	flags.StringVar(&f.Model, "model", "", "Model name")
	flags.StringVar(&f.Backend, "backend", "", "Transport backend: gemini or ollama")
	flags.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
}

// Resolve loads the config file, applies the environment and then the flags,
// fills defaults and validates the result.
func (f *Flags) Resolve() (*config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}

	if f.APIKey != "" {
		cfg.APIKey = f.APIKey
	}
	if f.Model != "" {
		cfg.Model = f.Model
	}
	if f.Backend != "" {
		cfg.Backend = f.Backend
	}
	if f.Debug {
		cfg.Debug = true
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewSender builds the transport for the configured backend.
func NewSender(ctx context.Context, cfg *config.Config, logger *zap.Logger) (transport.Sender, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		sender, err := gemini.New(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("using gemini backend", zap.String("model", sender.Model()))
		return sender, nil

	case config.BackendOllama:
		sender := ollama.New(ollama.Config{
			UpstreamURL: cfg.UpstreamURL,
			Model:       cfg.Model,
		}, logger)
		logger.Info("using ollama backend",
			zap.String("upstream", cfg.UpstreamURL),
			zap.String("model", sender.Model()),
		)
		return sender, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// NewController builds a conversation controller over sender.
func NewController(cfg *config.Config, sender transport.Sender, logger *zap.Logger) *conversation.Controller {
	opts := []conversation.Option{
		conversation.WithErrorDisplay(cfg.ErrorDisplay.Duration),
	}
	if cfg.BusyMessage != "" {
		opts = append(opts, conversation.WithBusyMessage(cfg.BusyMessage))
	}
	return conversation.New(sender, logger, opts...)
}
