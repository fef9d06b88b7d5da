// Package conversation owns the state of a single chat: the ordered message
// list, a loading flag and a transient error. Presentation layers read
// snapshots and send text through Submit; they never mutate state directly.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/gemchat/pkg/llm"
	"github.com/papercomputeco/gemchat/pkg/merkle"
	"github.com/papercomputeco/gemchat/pkg/transport"
)

const (
	// DefaultErrorDisplay is how long an error stays visible before it clears itself.
	DefaultErrorDisplay = 1500 * time.Millisecond

	DefaultBusyMessage         = "The server is busy right now. Please try again in a moment."
	DefaultUnknownErrorMessage = "Something went wrong. Please try again."
)

var (
	// ErrStaleParent is returned by SubmitAt when the conversation head no
	// longer matches the expected parent.
	ErrStaleParent = errors.New("conversation head has moved")

	ErrClosed = errors.New("conversation closed")
)

// Controller is the conversation controller. It is safe for concurrent use.
//
// Submissions run one at a time in the order they acquire their turn, so the
// message list always alternates user and model entries per completed turn.
type Controller struct {
	sender transport.Sender
	logger *zap.Logger

	errorDisplay        time.Duration
	busyMessage         string
	unknownErrorMessage string

	// turn is a one-slot semaphore held for the whole of a submission.
	turn chan struct{}
	done chan struct{}

	mu             sync.Mutex
	conversationID uuid.UUID
	chain          merkle.Chain
	status         Status
	errMsg         string
	version        uint64

	// generation is bumped by Reset and Close; completions from an older
	// generation are dropped.
	generation     uint64
	cancelInFlight context.CancelFunc

	// errSeq tags the current error so a late timer cannot clear a newer one.
	errSeq   uint64
	errTimer *time.Timer

	subscribers map[int]chan Snapshot
	nextSubID   int
	closed      bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithErrorDisplay sets how long an error stays visible. Zero or less keeps
// errors until ClearError, Reset or the next successful turn.
func WithErrorDisplay(d time.Duration) Option {
	return func(c *Controller) {
		c.errorDisplay = d
	}
}

// WithBusyMessage sets the text shown in place of overload failures.
func WithBusyMessage(msg string) Option {
	return func(c *Controller) {
		c.busyMessage = msg
	}
}

// WithUnknownErrorMessage sets the text shown for failures without a message.
func WithUnknownErrorMessage(msg string) Option {
	return func(c *Controller) {
		c.unknownErrorMessage = msg
	}
}

// New creates a Controller with an empty conversation.
func New(sender transport.Sender, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		sender:              sender,
		logger:              logger,
		errorDisplay:        DefaultErrorDisplay,
		busyMessage:         DefaultBusyMessage,
		unknownErrorMessage: DefaultUnknownErrorMessage,
		turn:                make(chan struct{}, 1),
		done:                make(chan struct{}),
		conversationID:      uuid.New(),
		subscribers:         make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit runs one turn: it appends question as a user message, sends the
// conversation to the model, and appends the reply or records an error.
// Blank input is ignored. Submit blocks until the turn completes and returns
// the resulting snapshot; failures are reported through Snapshot.Error only.
func (c *Controller) Submit(ctx context.Context, question string) Snapshot {
	snap, _ := c.submit(ctx, question, nil)
	return snap
}

// SubmitAt is Submit guarded by the head hash the caller last saw. The check
// happens once the submission holds its turn, so a turn queued behind another
// fails with ErrStaleParent if the earlier turn moved the head. Nothing is
// appended and no call is made in that case. SubmitAt also reports ErrClosed
// and the context error when the turn never starts.
func (c *Controller) SubmitAt(ctx context.Context, parent, question string) (Snapshot, error) {
	return c.submit(ctx, question, &parent)
}

func (c *Controller) submit(ctx context.Context, question string, parent *string) (Snapshot, error) {
	if strings.TrimSpace(question) == "" {
		return c.Snapshot(), nil
	}

	select {
	case c.turn <- struct{}{}:
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	case <-c.done:
		return c.Snapshot(), ErrClosed
	}
	defer func() { <-c.turn }()

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.closed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrClosed
	}
	if parent != nil && *parent != c.chain.Head() {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Debug("rejecting turn against a moved head",
			zap.String("parent", truncate(*parent, 16)),
			zap.String("head", truncate(snap.Head, 16)),
		)
		return snap, ErrStaleParent
	}
	gen := c.generation
	c.cancelInFlight = cancel
	c.status = StatusLoading
	c.chain.Append(llm.NewUserMessage(question))
	history := c.chain.Messages()
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Debug("submitting turn",
		zap.Int("history_length", len(history)),
		zap.String("prompt_preview", truncate(question, 50)),
	)

	start := time.Now()
	reply, err := c.sender.Send(callCtx, question, history)
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("discarding completion from a reset conversation",
			zap.Duration("duration", elapsed),
			zap.Bool("failed", err != nil),
		)
		return c.snapshotLocked(), nil
	}

	c.cancelInFlight = nil
	c.status = StatusIdle

	if err != nil {
		c.logger.Warn("turn failed", zap.Error(err), zap.Duration("duration", elapsed))
		c.setErrorLocked(c.userFacingError(err))
	} else {
		c.chain.Append(llm.NewModelMessage(reply))
		c.clearErrorLocked()
		c.logger.Info("turn completed",
			zap.Int("message_count", c.chain.Len()),
			zap.String("head_hash", truncate(c.chain.Head(), 16)),
			zap.Duration("duration", elapsed),
		)
	}

	c.publishLocked()
	return c.snapshotLocked(), nil
}

// ClearError clears the current error. It is a no-op when no error is set.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clearErrorLocked() {
		c.publishLocked()
	}
}

// Reset starts a new chat: messages, status and error return to their initial
// values in one step, and a turn still in flight is cancelled and discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.invalidateInFlightLocked()
	c.clearErrorLocked()
	c.chain.Reset()
	c.status = StatusIdle
	c.conversationID = uuid.New()
	c.publishLocked()

	c.logger.Info("conversation reset", zap.String("conversation_id", c.conversationID.String()))
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers an observer. The channel immediately holds the current
// snapshot and afterwards always holds the most recent one: a slow reader
// skips intermediate states but never misses the latest. The channel is closed
// by the returned cancel function or by Close.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

// Done is closed when the controller is closed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Close tears the controller down: the error timer is stopped, a turn in
// flight is cancelled and discarded, and subscriber channels are closed.
// Close is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.invalidateInFlightLocked()
	c.stopTimerLocked()
	close(c.done)

	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
	return nil
}

func (c *Controller) invalidateInFlightLocked() {
	c.generation++
	if c.cancelInFlight != nil {
		c.cancelInFlight()
		c.cancelInFlight = nil
	}
}

func (c *Controller) userFacingError(err error) string {
	msg := err.Error()
	switch {
	case msg == "":
		return c.unknownErrorMessage
	case IsBusy(msg):
		return c.busyMessage
	default:
		return msg
	}
}

func (c *Controller) setErrorLocked(msg string) {
	c.stopTimerLocked()
	c.errSeq++
	c.errMsg = msg

	if c.errorDisplay <= 0 {
		return
	}
	seq := c.errSeq
	c.errTimer = time.AfterFunc(c.errorDisplay, func() {
		c.expireError(seq)
	})
}

func (c *Controller) expireError(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.errSeq || c.errMsg == "" {
		return
	}
	c.errTimer = nil
	c.errMsg = ""
	c.publishLocked()
}

// clearErrorLocked reports whether there was an error to clear.
func (c *Controller) clearErrorLocked() bool {
	c.stopTimerLocked()
	if c.errMsg == "" {
		return false
	}
	c.errSeq++
	c.errMsg = ""
	return true
}

func (c *Controller) stopTimerLocked() {
	if c.errTimer != nil {
		c.errTimer.Stop()
		c.errTimer = nil
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		ConversationID: c.conversationID.String(),
		Messages:       c.chain.Messages(),
		Status:         c.status,
		Loading:        c.status == StatusLoading,
		Error:          c.errMsg,
		Head:           c.chain.Head(),
		Version:        c.version,
	}
}

func (c *Controller) publishLocked() {
	c.version++
	snap := c.snapshotLocked()

	for _, ch := range c.subscribers {
		// Only publishLocked sends, and only under c.mu, so after draining
		// the slot the send cannot block.
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// IsBusy reports whether a failure message indicates the service is overloaded.
func IsBusy(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "503") || strings.Contains(lower, "overloaded")
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
