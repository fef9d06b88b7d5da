package chatcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/gemchat/cmd/gemchat/setup"
	"github.com/papercomputeco/gemchat/pkg/config"
	"github.com/papercomputeco/gemchat/pkg/logger"
	"github.com/papercomputeco/gemchat/tui"
)

const chatLongDesc string = `Start an interactive chat in the terminal.

Type a question and press Enter to send it. The conversation lives
only for the length of the session.

Keys:
  enter    send the current input
  ctrl+n   start a new chat
  esc      dismiss the current error
  ctrl+c   quit

Logs are written to the configured log_file, or to
~/.gemchat/gemchat.log when --debug is set.

Examples:
  gemchat chat
  gemchat chat --model gemini-2.5-pro
  gemchat chat --backend ollama --model llama3.2`

const chatShortDesc string = "Chat with the model in the terminal"

type chatCommander struct {
	flags   *setup.Flags
	logFile string
}

func NewChatCmd(flags *setup.Flags) *cobra.Command {
	cmder := &chatCommander{flags: flags}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Path to log file (overrides log_file)")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	cfg, err := c.flags.Resolve()
	if err != nil {
		return err
	}

	logPath, err := c.resolveLogPath(cfg)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.NewFileLogger(logPath, cfg.Debug)
	if err != nil {
		return fmt.Errorf("could not open log file %s: %w", logPath, err)
	}
	defer closeLog()
	defer log.Sync()

	sender, err := setup.NewSender(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("could not create %s backend: %w", cfg.Backend, err)
	}

	ctrl := setup.NewController(cfg, sender, log)
	defer ctrl.Close()

	log.Info("chat session starting", zap.String("backend", cfg.Backend))

	if err := tui.Run(ctx, ctrl); err != nil {
		return fmt.Errorf("chat session failed: %w", err)
	}
	return nil
}

func (c *chatCommander) resolveLogPath(cfg *config.Config) (string, error) {
	switch {
	case c.logFile != "":
		return c.logFile, nil
	case cfg.LogFile != "":
		return cfg.LogFile, nil
	case cfg.Debug:
		return config.DefaultLogPath()
	default:
		return "", nil
	}
}
