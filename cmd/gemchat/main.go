package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/gemchat/cmd/gemchat/chat"
	servecmder "github.com/papercomputeco/gemchat/cmd/gemchat/serve"
	"github.com/papercomputeco/gemchat/cmd/gemchat/setup"
)

const rootLongDesc string = `gemchat is a minimal chat client for Gemini.

Settings are read from ~/.gemchat/config.toml, then the environment
(GEMINI_API_KEY, GOOGLE_API_KEY, GEMCHAT_MODEL, GEMCHAT_BACKEND,
OLLAMA_HOST), then command-line flags.`

const rootShortDesc string = "A minimal Gemini chat client"

func newRootCmd() *cobra.Command {
	flags := &setup.Flags{}

	cmd := &cobra.Command{
		Use:           "gemchat",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.Bind(cmd)

	cmd.AddCommand(chatcmder.NewChatCmd(flags))
	cmd.AddCommand(servecmder.NewServeCmd(flags))

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
