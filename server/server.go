// Package server exposes one conversation over HTTP: snapshots out, submitted
// text in, and an NDJSON stream of snapshots for clients that redraw on change.
package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/gemchat/conversation"
	"github.com/papercomputeco/gemchat/pkg/llm"
)

const (
	defaultShutdownTimeout   = 5 * time.Second
	defaultKeepAliveInterval = 15 * time.Second
)

// Server is the HTTP rendering boundary for a conversation.Controller.
type Server struct {
	config Config
	ctrl   *conversation.Controller
	logger *zap.Logger
	app    *fiber.App
}

// SubmitRequest is the body of POST /conversation/messages.
type SubmitRequest struct {
	Text string `json:"text"`

	// Parent, when set, must equal the current conversation head. It lets a
	// client refuse to append to a conversation that changed under it.
	Parent *string `json:"parent,omitempty"`
}

// New creates a new Server.
func New(config Config, ctrl *conversation.Controller, logger *zap.Logger) *Server {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}
	if config.KeepAliveInterval <= 0 {
		config.KeepAliveInterval = defaultKeepAliveInterval
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		ctrl:   ctrl,
		logger: logger,
		app:    app,
	}
	s.registerRoutes(app)

	return s
}

func (s *Server) registerRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Get("/conversation", s.handleGetConversation)
	app.Delete("/conversation", s.handleReset)
	app.Post("/conversation/messages", s.handleSubmit)
	app.Delete("/conversation/error", s.handleClearError)
	app.Get("/conversation/events", s.handleEvents)
}

// RunWithListener starts the server on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting chat server", zap.String("listen", ln.Addr().String()))
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for open ones to finish.
// Event streams end when the controller is closed, so close it first.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(s.config.ShutdownTimeout)
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Snapshot())
}

// handleSubmit runs one turn and answers with the resulting snapshot. Transport
// failures are part of the snapshot, not an HTTP error.
func (s *Server) handleSubmit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		s.logger.Debug("failed to parse submit request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "text is required"})
	}

	select {
	case <-s.ctrl.Done():
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "conversation closed"})
	default:
	}

	start := time.Now()

	var snap conversation.Snapshot
	if req.Parent == nil {
		snap = s.ctrl.Submit(c.UserContext(), text)
	} else {
		var err error
		snap, err = s.ctrl.SubmitAt(c.UserContext(), *req.Parent, text)
		switch {
		case errors.Is(err, conversation.ErrStaleParent):
			return c.Status(fiber.StatusConflict).JSON(llm.ErrorResponse{Error: "conversation has changed"})
		case errors.Is(err, conversation.ErrClosed):
			return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "conversation closed"})
		case err != nil:
			return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: err.Error()})
		}
	}

	s.logger.Debug("submit handled",
		zap.Int("message_count", len(snap.Messages)),
		zap.Bool("failed", snap.Error != ""),
		zap.Duration("duration", time.Since(start)),
	)

	return c.JSON(snap)
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	s.ctrl.Reset()
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleClearError(c *fiber.Ctx) error {
	s.ctrl.ClearError()
	return c.JSON(s.ctrl.Snapshot())
}

// handleEvents streams snapshots as NDJSON, the current one first. Slow
// clients skip intermediate snapshots. While nothing changes an empty line is
// written every KeepAliveInterval, so a client that went away is noticed on
// that write. The stream ends on a failed write or when the controller is
// closed.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	ch, cancel := s.ctrl.Subscribe()

	c.Set("Content-Type", "application/x-ndjson")
	c.Set("Cache-Control", "no-cache")
	c.Set("Transfer-Encoding", "chunked")

	interval := s.config.KeepAliveInterval

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case snap, ok := <-ch:
				if !ok {
					return
				}
				line, err := json.Marshal(snap)
				if err != nil {
					s.logger.Error("failed to marshal snapshot", zap.Error(err))
					return
				}
				w.Write(line)
				w.Write([]byte("\n"))

			case <-ticker.C:
				w.Write([]byte("\n"))
			}

			if err := w.Flush(); err != nil {
				s.logger.Debug("event stream closed by client", zap.Error(err))
				return
			}
		}
	}))

	return nil
}
