package chatapi

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
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultDevAddress = "http://127.0.0.1:8000"
)

// replyFields are tried in order; the backend contract has used all three.
var replyFields = []string{"output", "response", "answer"}

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Reply is the normalised outcome of a successful Send.
type Reply struct {
	Text         string
	Agent        domain.AgentCategory
	SessionToken string
}

// Client posts user turns to the support backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	devAddress string
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds each request, including reading the body. It applies
// to a copy of the current HTTP client, so its transport is kept.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithDevAddress sets the address quoted in the service-unavailable message.
func WithDevAddress(addr string) Option {
	return func(c *Client) {
		c.devAddress = strings.TrimSpace(addr)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("chatapi: base URL must not be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("chatapi: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("chatapi: base URL %q must use http or https", baseURL)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		devAddress: DefaultDevAddress,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func chatURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/chat"
}

// Send posts one user turn. sessionToken is omitted from the request when
// empty. Every error is a *Error.
func (c *Client) Send(ctx context.Context, text, sessionToken string) (Reply, error) {
	body, err := json.Marshal(chatRequest{Query: text, ConversationID: sessionToken})
	if err != nil {
		return Reply{}, c.newError(KindUnknown, fmt.Errorf("marshal request: %w", err))
	}

	endpoint := chatURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, c.newError(KindUnknown, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	raw, err := c.doJSONRequest(ctx, req, endpoint)
	c.logger.Debug().
		Str("url", endpoint).
		Bool("has_session", sessionToken != "").
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("chat request finished")
	if err != nil {
		return Reply{}, err
	}

	reply, err := parseReply(raw)
	if err != nil {
		return Reply{}, c.newError(KindUnknown, err)
	}
	return reply, nil
}

func (c *Client) doJSONRequest(ctx context.Context, req *http.Request, endpoint string) ([]byte, error) {
	res, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, c.newError(classifyTransport(ctx, doErr), doErr)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &Error{
			Kind:       classifyStatus(res.StatusCode),
			StatusCode: res.StatusCode,
			URL:        endpoint,
			Body:       string(buf),
			devAddress: c.devAddress,
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, c.newError(classifyTransport(ctx, err), fmt.Errorf("read response body: %w", err))
	}
	return buf, nil
}

func (c *Client) newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err, devAddress: c.devAddress}
}

// parseReply extracts the reply text using the first non-empty string among
// replyFields and falls back to the compact payload itself. Any JSON value
// other than null is accepted; only objects carry fields.
func parseReply(raw []byte) (Reply, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Reply{}, fmt.Errorf("decode response: %w", err)
	}
	if decoded == nil {
		return Reply{}, errors.New("decode response: payload is null")
	}
	payload, _ := decoded.(map[string]any)

	var reply Reply
	for _, field := range replyFields {
		if s := stringField(payload, field); s != "" {
			reply.Text = s
			break
		}
	}
	if reply.Text == "" {
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return Reply{}, fmt.Errorf("compact response: %w", err)
		}
		reply.Text = compact.String()
	}
	if agent, ok := domain.ParseAgentCategory(stringField(payload, "agent_type")); ok {
		reply.Agent = agent
	}
	reply.SessionToken = stringField(payload, "conversation_id")
	return reply, nil
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
