package servecmder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/gemchat/cmd/gemchat/setup"
	"github.com/papercomputeco/gemchat/pkg/logger"
	"github.com/papercomputeco/gemchat/server"
)

const serveLongDesc string = `Serve one conversation over HTTP.

The server exposes the conversation as JSON and streams every state
change as newline-delimited JSON on /conversation/events.

Routes:
  GET    /health
  GET    /conversation
  DELETE /conversation              start a new chat
  POST   /conversation/messages     {"text": "..."}
  DELETE /conversation/error        dismiss the current error
  GET    /conversation/events

Examples:
  gemchat serve
  gemchat serve --listen 127.0.0.1:9000 --debug`

const serveShortDesc string = "Serve the conversation over HTTP"

const shutdownTimeout = 5 * time.Second

type serveCommander struct {
	flags      *setup.Flags
	listenAddr string

	// ready receives the bound address once the listener is open.
	ready func(addr net.Addr)
}

func NewServeCmd(flags *setup.Flags) *cobra.Command {
	cmder := &serveCommander{flags: flags}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", "", "Address to listen on (default :8080)")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, err := c.flags.Resolve()
	if err != nil {
		return err
	}
	if c.listenAddr != "" {
		cfg.ListenAddr = c.listenAddr
	}

	log := logger.NewLogger(cfg.Debug)
	defer log.Sync()

	sender, err := setup.NewSender(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("could not create %s backend: %w", cfg.Backend, err)
	}

	ctrl := setup.NewController(cfg, sender, log)
	defer ctrl.Close()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", cfg.ListenAddr, err)
	}
	if c.ready != nil {
		c.ready(ln.Addr())
	}

	srv := server.New(server.Config{ShutdownTimeout: shutdownTimeout}, ctrl, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.RunWithListener(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("chat server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down chat server")

	// Closing the controller first ends open event streams.
	_ = ctrl.Close()
	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("could not shut down chat server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("chat server failed: %w", err)
	}
	return nil
}
