package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"support-chat/internal/domain"
)

const (
	defaultMaxContext  = 20
	defaultMaxQuestion = 2000
	defaultMaxTurns    = 50

	maxSaveAttempts = 3
)

// Responder produces the assistant reply for one question.
type Responder interface {
	Respond(ctx context.Context, q domain.Question) (domain.Reply, error)
}

type StateReadWriter interface {
	GetConversationTurnCount(ctx context.Context, conversationID string) (int, error)
	GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
	SaveCompletedTurn(ctx context.Context, conversationID, question string, reply domain.Reply, turns int) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Limits bounds the work done per request. Zero values select defaults.
type Limits struct {
	MaxContextItems int
	MaxQuestionLen  int
	MaxTurns        int
}

type ChatService struct {
	responder Responder
	state     StateReadWriter
	limits    Limits
	logger    zerolog.Logger
}

type ChatInput struct {
	Query          string
	ConversationID string
}

type ChatOutput struct {
	Response       string
	Agent          domain.AgentCategory
	ConversationID string
}

type Option func(*ChatService)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *ChatService) {
		s.logger = logger
	}
}

func NewChatService(r Responder, s StateReadWriter, limits Limits, opts ...Option) (*ChatService, error) {
	if r == nil {
		return nil, errors.New("usecase: responder must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	if limits.MaxContextItems <= 0 {
		limits.MaxContextItems = defaultMaxContext
	}
	if limits.MaxQuestionLen <= 0 {
		limits.MaxQuestionLen = defaultMaxQuestion
	}
	if limits.MaxTurns <= 0 {
		limits.MaxTurns = defaultMaxTurns
	}
	svc := &ChatService{
		responder: r,
		state:     s,
		limits:    limits,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Chat answers one query. A conversation id is generated when the caller did
// not send one; the returned id must be echoed on later queries to keep the
// backend context.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_query", nil)
	}
	if utf8.RuneCountInString(query) > s.limits.MaxQuestionLen {
		return ChatOutput{}, newError(ErrorInvalidInput, "query_too_long", nil)
	}

	convID := strings.TrimSpace(in.ConversationID)
	existingTurns := 0
	if convID == "" {
		convID = newUUID()
	} else {
		turnCount, err := s.state.GetConversationTurnCount(ctx, convID)
		if err != nil {
			return ChatOutput{}, newError(ErrorInternal, "state_turn_count_error", err)
		}
		existingTurns = turnCount
		if existingTurns >= s.limits.MaxTurns {
			return ChatOutput{}, newError(ErrorInvalidInput, "conversation_turn_limit", nil)
		}
	}
	logger := s.logger.With().Str("conversation_id", convID).Logger()

	history, err := s.state.GetHistory(ctx, convID, s.limits.MaxContextItems)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "state_history_error", err)
	}

	reply, err := s.responder.Respond(ctx, domain.Question{
		ConversationID: convID,
		Text:           query,
		History:        history,
	})
	if err != nil {
		var ucErr *Error
		if errors.As(err, &ucErr) {
			return ChatOutput{}, ucErr
		}
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return ChatOutput{}, newError(ErrorRateLimited, "responder_rate_limited", err)
		}
		return ChatOutput{}, newError(ErrorUpstream, "responder_error", err)
	}
	if reply.Agent == domain.AgentNone {
		reply.Agent = domain.AgentGeneralSupport
	}

	turns, err := s.saveTurn(ctx, convID, query, reply, existingTurns)
	if err != nil {
		return ChatOutput{}, err
	}
	logger.Debug().Str("agent", string(reply.Agent)).Int("turns", turns).Msg("turn completed")

	return ChatOutput{
		Response:       reply.Text,
		Agent:          reply.Agent,
		ConversationID: convID,
	}, nil
}

// saveTurn stores the answered turn on top of existing. When another request
// advanced the conversation first, the count is re-read and the write retried
// so that no increment is lost and the turn limit still holds.
func (s *ChatService) saveTurn(ctx context.Context, convID, query string, reply domain.Reply, existing int) (int, error) {
	for attempt := 1; ; attempt++ {
		err := s.state.SaveCompletedTurn(ctx, convID, query, reply, existing+1)
		if err == nil {
			return existing + 1, nil
		}
		if !errors.Is(err, domain.ErrTurnConflict) || attempt == maxSaveAttempts {
			return 0, newError(ErrorInternal, "state_write_error", err)
		}
		s.logger.Warn().Err(err).Str("conversation_id", convID).Int("attempt", attempt).Msg("turn count moved, retrying save")

		existing, err = s.state.GetConversationTurnCount(ctx, convID)
		if err != nil {
			return 0, newError(ErrorInternal, "state_turn_count_error", err)
		}
		if existing >= s.limits.MaxTurns {
			return 0, newError(ErrorInvalidInput, "conversation_turn_limit", nil)
		}
	}
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
