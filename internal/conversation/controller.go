package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"support-chat/internal/chatapi"
	"support-chat/internal/domain"
)

var (
	ErrEmptyMessage   = errors.New("conversation: message is empty")
	ErrBusy           = errors.New("conversation: a request is already in flight")
	ErrNothingToRetry = errors.New("conversation: nothing to retry")
)

// Transport sends one user turn to the backend. *chatapi.Client satisfies it.
type Transport interface {
	Send(ctx context.Context, text, sessionToken string) (chatapi.Reply, error)
}

type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateError
)

func (s State) String() string {
	switch s {
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Pending is the ticket for one in-flight request. It records the generation
// that was current at send time so late outcomes can be told apart.
type Pending struct {
	Text         string
	SessionToken string

	generation uint64
	ctx        context.Context
}

// Outcome is the result of Exec, applied to the conversation by Resolve.
type Outcome struct {
	Reply chatapi.Reply
	Err   error

	pending *Pending
}

// Snapshot is a point-in-time copy of the controller state for rendering.
type Snapshot struct {
	Messages     []domain.Message
	State        State
	Err          error
	ErrorMessage string
	SessionToken string
}

// Controller owns the conversation and drives the turn lifecycle:
// Idle -> AwaitingResponse -> Idle | Error, Error -> AwaitingResponse on
// retry, and any state -> Idle on Reset.
type Controller struct {
	transport Transport
	logger    zerolog.Logger

	mu          sync.Mutex
	store       *Store
	state       State
	lastErr     error
	lastSent    string
	hasLastSent bool
	generation  uint64
	cancel      context.CancelFunc
}

type Option func(*Controller)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.store = NewStore(now)
	}
}

func NewController(t Transport, opts ...Option) (*Controller, error) {
	if t == nil {
		return nil, errors.New("conversation: transport must not be nil")
	}
	c := &Controller{
		transport: t,
		logger:    zerolog.Nop(),
		store:     NewStore(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit appends the user message and moves to AwaitingResponse. The caller
// runs Exec with the returned ticket and hands the outcome to Resolve.
func (c *Controller) Submit(text string) (*Pending, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAwaitingResponse {
		return nil, ErrBusy
	}
	c.store.Append(text, domain.SenderUser, domain.AgentNone)
	c.lastSent = text
	c.hasLastSent = true
	return c.beginLocked(text), nil
}

// Retry re-sends the last submitted user message without appending it again.
// It is only valid after a failed turn.
func (c *Controller) Retry() (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateError || !c.hasLastSent {
		return nil, ErrNothingToRetry
	}
	return c.beginLocked(c.lastSent), nil
}

func (c *Controller) beginLocked(text string) *Pending {
	c.generation++
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = StateAwaitingResponse
	c.lastErr = nil

	c.logger.Debug().Uint64("generation", c.generation).Msg("turn started")
	return &Pending{
		Text:         text,
		SessionToken: c.store.Session(),
		generation:   c.generation,
		ctx:          ctx,
	}
}

// Exec performs the network call for p. It does not touch controller state
// and may run on any goroutine. The request is aborted when ctx is done or
// when the conversation is reset.
func (c *Controller) Exec(ctx context.Context, p *Pending) Outcome {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	if p.ctx != nil {
		unregister := context.AfterFunc(p.ctx, stop)
		defer unregister()
	}
	reply, err := c.transport.Send(ctx, p.Text, p.SessionToken)
	return Outcome{Reply: reply, Err: err, pending: p}
}

// Resolve applies o. It reports false when o belongs to a turn that was
// superseded by Reset and was therefore discarded.
func (c *Controller) Resolve(o Outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.pending == nil || o.pending.generation != c.generation || c.state != StateAwaitingResponse {
		c.logger.Debug().Msg("discarding stale turn outcome")
		return false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if o.Err != nil {
		c.state = StateError
		c.lastErr = o.Err
		c.logger.Warn().Err(o.Err).Str("kind", chatapi.KindOf(o.Err).String()).Msg("turn failed")
		return true
	}

	c.store.Append(o.Reply.Text, domain.SenderAssistant, o.Reply.Agent)
	if o.Reply.SessionToken != "" {
		c.store.SetSession(o.Reply.SessionToken)
	}
	c.state = StateIdle
	c.lastErr = nil
	return true
}

// Reset clears messages, error and session token and returns to Idle. An
// in-flight request is cancelled and its outcome will be discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.store.Clear()
	c.state = StateIdle
	c.lastErr = nil
	c.lastSent = ""
	c.hasLastSent = false
}

// Send runs a full turn synchronously.
func (c *Controller) Send(ctx context.Context, text string) (chatapi.Reply, error) {
	p, err := c.Submit(text)
	if err != nil {
		return chatapi.Reply{}, err
	}
	return c.run(ctx, p)
}

// RetryLast runs a retry synchronously.
func (c *Controller) RetryLast(ctx context.Context) (chatapi.Reply, error) {
	p, err := c.Retry()
	if err != nil {
		return chatapi.Reply{}, err
	}
	return c.run(ctx, p)
}

func (c *Controller) run(ctx context.Context, p *Pending) (chatapi.Reply, error) {
	o := c.Exec(ctx, p)
	c.Resolve(o)
	return o.Reply, o.Err
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Messages:     c.store.Messages(),
		State:        c.state,
		Err:          c.lastErr,
		ErrorMessage: chatapi.UserMessage(c.lastErr),
		SessionToken: c.store.Session(),
	}
}

// LastAssistantMessage returns the most recent assistant reply, if any.
func (s Snapshot) LastAssistantMessage() (domain.Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Sender == domain.SenderAssistant {
			return s.Messages[i], true
		}
	}
	return domain.Message{}, false
}
