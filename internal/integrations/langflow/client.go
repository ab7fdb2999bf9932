package langflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"support-chat/internal/domain"
	"support-chat/internal/integrations/paramstore"
)

const (
	DefaultHost    = "http://localhost:7860"
	defaultTimeout = 30 * time.Second

	// FallbackAnswer is returned when a run produced no usable chat message.
	FallbackAnswer = "I apologise, but I couldn't process your request."
)

type runRequest struct {
	InputValue string `json:"input_value"`
	InputType  string `json:"input_type"`
	OutputType string `json:"output_type"`
	SessionID  string `json:"session_id,omitempty"`
}

type flowMessage struct {
	Text       string `json:"text"`
	SenderName string `json:"sender_name"`
}

type results struct {
	Message *flowMessage `json:"message"`
}

// outputBlock covers both the nested run layout (outputs[].outputs[].results)
// and the older flat one (outputs[].results).
type outputBlock struct {
	Outputs []outputBlock `json:"outputs"`
	Results *results      `json:"results"`
}

type runResponse struct {
	SessionID string        `json:"session_id"`
	Outputs   []outputBlock `json:"outputs"`
}

// HTTPStatusError captures non-2xx responses from LangFlow.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("langflow: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client runs a single LangFlow flow per question.
type Client struct {
	host       string
	flowID     string
	keyName    string
	httpClient *http.Client
	logger     zerolog.Logger

	apiKey *paramstore.SecretCache
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client. The API key is read through getter under
// keyName on first use.
func NewClient(getter paramstore.Getter, host, flowID, keyName string, opts ...Option) (*Client, error) {
	if getter == nil {
		return nil, errors.New("langflow: parameter getter must not be nil")
	}
	flowID = strings.TrimSpace(flowID)
	if flowID == "" {
		return nil, errors.New("langflow: flow id must not be empty")
	}
	keyName = strings.TrimSpace(keyName)
	if keyName == "" {
		return nil, errors.New("langflow: api key parameter name must not be empty")
	}
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	c := &Client{
		host:       host,
		flowID:     flowID,
		keyName:    keyName,
		apiKey:     paramstore.NewSecretCache(getter, keyName),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	key, err := c.apiKey.Get(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("parameter", c.keyName).Msg("langflow key lookup failed")
	}
	return key, err
}

func runURL(host, flowID string) string {
	return strings.TrimRight(host, "/") + "/api/v1/run/" + url.PathEscape(flowID)
}

// Respond runs the flow with the question, using the conversation id as the
// LangFlow session so the flow keeps its own memory.
func (c *Client) Respond(ctx context.Context, q domain.Question) (domain.Reply, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("langflow: resolve api key: %w", err)
	}

	body, err := json.Marshal(runRequest{
		InputValue: q.Text,
		InputType:  "chat",
		OutputType: "chat",
		SessionID:  q.ConversationID,
	})
	if err != nil {
		return domain.Reply{}, fmt.Errorf("langflow: marshal request: %w", err)
	}

	endpoint := runURL(c.host, c.flowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Reply{}, fmt.Errorf("langflow: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("langflow: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return domain.Reply{}, &HTTPStatusError{StatusCode: res.StatusCode, URL: endpoint, Body: string(buf)}
	}

	var payload runResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 4<<20)).Decode(&payload); err != nil {
		return domain.Reply{}, fmt.Errorf("langflow: decode response: %w", err)
	}

	reply, found := extractReply(payload)
	c.logger.Debug().
		Int("status", res.StatusCode).
		Bool("found", found).
		Str("agent", string(reply.Agent)).
		Msg("langflow run finished")
	return reply, nil
}

// extractReply looks for the first non-blank chat message, first in the
// nested layout of the first output and then in the flat legacy layout.
func extractReply(payload runResponse) (domain.Reply, bool) {
	if len(payload.Outputs) > 0 {
		for _, inner := range payload.Outputs[0].Outputs {
			if reply, ok := messageReply(inner.Results); ok {
				return reply, true
			}
		}
	}
	for _, out := range payload.Outputs {
		if reply, ok := messageReply(out.Results); ok {
			return reply, true
		}
	}
	return domain.Reply{Text: FallbackAnswer, Agent: domain.AgentGeneralSupport}, false
}

func messageReply(r *results) (domain.Reply, bool) {
	if r == nil || r.Message == nil || strings.TrimSpace(r.Message.Text) == "" {
		return domain.Reply{}, false
	}
	agent, ok := domain.ParseAgentCategory(r.Message.SenderName)
	if !ok {
		agent = domain.AgentGeneralSupport
	}
	return domain.Reply{Text: r.Message.Text, Agent: agent}, true
}
