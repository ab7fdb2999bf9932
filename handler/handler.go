package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"support-chat/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Response       string `json:"response"`
	AgentType      string `json:"agent_type,omitempty"`
	ConversationID string `json:"conversation_id"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Handler serves POST /chat for API Gateway proxy events and, through
// NewRouter, for plain net/http.
type Handler struct {
	uc             ChatUseCase
	logger         zerolog.Logger
	allowedOrigins []string
}

type Option func(*Handler)

func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithAllowedOrigins restricts the CORS Access-Control-Allow-Origin header.
// An empty list or "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		h.allowedOrigins = origins
	}
}

func NewHandler(uc ChatUseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{uc: uc, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle is the Lambda entry point.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(req.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	origin := headerValue(req.Headers, "Origin")

	if req.HTTPMethod == http.MethodOptions {
		return h.response(http.StatusNoContent, corrID, origin, ""), nil
	}

	status, body := h.chat(ctx, corrID, req.Body)
	return h.response(status, corrID, origin, body), nil
}

func (h *Handler) chat(ctx context.Context, corrID, raw string) (int, string) {
	logger := h.logger.With().Str("correlation_id", corrID).Logger()

	var in chatRequest
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		logger.Warn().Err(err).Msg("invalid request body")
		return encode(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Detail: "invalid_json"})
	}

	out, err := h.uc.Chat(ctx, usecase.ChatInput{Query: in.Query, ConversationID: in.ConversationID})
	if err != nil {
		status, resp := mapError(err)
		ev := logger.Warn()
		if status >= 500 {
			ev = logger.Error()
		}
		ev.Err(err).Int("status", status).Str("code", resp.Error).Msg("chat failed")
		return encode(status, resp)
	}

	logger.Info().
		Str("conversation_id", out.ConversationID).
		Str("agent", string(out.Agent)).
		Msg("chat answered")
	return encode(http.StatusOK, chatResponse{
		Response:       out.Response,
		AgentType:      string(out.Agent),
		ConversationID: out.ConversationID,
	})
}

func mapError(err error) (int, errorResponse) {
	ucErr := usecase.Classify(err)
	return ucErr.Code.HTTPStatus(), errorResponse{Error: string(ucErr.Code), Detail: ucErr.Reason}
}

func encode(status int, v any) (int, string) {
	buf, err := json.Marshal(v)
	if err != nil {
		return http.StatusInternalServerError, `{"error":"INTERNAL_ERROR"}`
	}
	return status, string(buf)
}

func (h *Handler) response(status int, corrID, origin, body string) events.APIGatewayProxyResponse {
	headers := map[string]string{
		correlationHeader:              corrID,
		"Access-Control-Allow-Origin":  h.allowOrigin(origin),
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, " + correlationHeader,
	}
	if body != "" {
		headers["Content-Type"] = "application/json"
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: body}
}

func (h *Handler) allowOrigin(origin string) string {
	if len(h.allowedOrigins) == 0 {
		return "*"
	}
	for _, o := range h.allowedOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return h.allowedOrigins[0]
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
