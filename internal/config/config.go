// Package config loads process configuration from the environment.
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

const (
	ResponderLangFlow = "langflow"
	ResponderLLM      = "llm"

	ParamSourceEnv = "env"
	ParamSourceSSM = "ssm"
)

// Logging is shared by every command.
type Logging struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
	File   string `env:"LOG_FILE"`
}

// Client configures the terminal chat client.
type Client struct {
	APIURL     string        `env:"SUPPORT_CHAT_API_URL"`
	DevAddress string        `env:"SUPPORT_CHAT_DEV_ADDRESS" envDefault:"http://127.0.0.1:8000"`
	Timeout    time.Duration `env:"SUPPORT_CHAT_TIMEOUT" envDefault:"30s"`
	Logging    Logging
}

// Server configures the /chat backend, both as a Lambda and as a local
// HTTP server.
type Server struct {
	ListenAddr     string   `env:"SUPPORT_CHAT_LISTEN_ADDR" envDefault:":8000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	Responder   string `env:"RESPONDER" envDefault:"langflow"`
	StateTable  string `env:"STATE_TABLE"`
	ParamSource string `env:"PARAM_SOURCE" envDefault:"env"`
	ParamPrefix string `env:"PARAM_PREFIX" envDefault:"/support-chat"`

	MaxContextItems int `env:"MAX_CONTEXT_ITEMS" envDefault:"20"`
	MaxQuestionLen  int `env:"MAX_QUESTION_LENGTH" envDefault:"2000"`
	MaxTurns        int `env:"MAX_TURNS" envDefault:"50"`

	LangFlowHost   string `env:"LANGFLOW_HOST" envDefault:"http://localhost:7860"`
	LangFlowFlowID string `env:"LANGFLOW_FLOW_ID"`
	LangFlowAPIKey string `env:"LANGFLOW_SECRET_KEY"`

	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL"`
	PinnedPrompt  string `env:"PINNED_PROMPT"`

	Logging Logging
}

func LoadClient() (Client, error) {
	return loadClient(env.Options{})
}

func loadClient(opts env.Options) (Client, error) {
	var c Client
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Client{}, errors.Wrap(err, "config: parse client environment")
	}
	return c, nil
}

func LoadServer() (Server, error) {
	return loadServer(env.Options{})
}

func loadServer(opts env.Options) (Server, error) {
	var s Server
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Server{}, errors.Wrap(err, "config: parse server environment")
	}
	s.Responder = strings.ToLower(strings.TrimSpace(s.Responder))
	s.ParamSource = strings.ToLower(strings.TrimSpace(s.ParamSource))
	s.ParamPrefix = strings.TrimRight(strings.TrimSpace(s.ParamPrefix), "/")
	if err := s.Validate(); err != nil {
		return Server{}, err
	}
	return s, nil
}

func (s Server) Validate() error {
	switch s.Responder {
	case ResponderLangFlow:
		if strings.TrimSpace(s.LangFlowFlowID) == "" {
			return errors.New("config: LANGFLOW_FLOW_ID is required for the langflow responder")
		}
	case ResponderLLM:
	default:
		return errors.Errorf("config: unknown RESPONDER %q (want %s or %s)", s.Responder, ResponderLangFlow, ResponderLLM)
	}
	switch s.ParamSource {
	case ParamSourceEnv, ParamSourceSSM:
	default:
		return errors.Errorf("config: unknown PARAM_SOURCE %q (want %s or %s)", s.ParamSource, ParamSourceEnv, ParamSourceSSM)
	}
	if s.ParamPrefix == "" {
		return errors.New("config: PARAM_PREFIX must not be empty")
	}
	return nil
}

// ParamName returns the parameter store name of key under the prefix.
func (s Server) ParamName(key string) string {
	return s.ParamPrefix + "/" + strings.TrimLeft(key, "/")
}

const (
	KeyLangFlowAPIKey = "langflow-api-key"
	KeyOpenAIAPIKey   = "openai-api-key"
	KeyPinnedPrompt   = "pinned_prompt"
	KeyOpenAIModel    = "config/openai_model"
)

// StaticParams exposes environment-provided secrets and settings under the
// same names the parameter store uses. Empty values are omitted.
func (s Server) StaticParams() map[string]string {
	out := make(map[string]string)
	for key, v := range map[string]string{
		KeyLangFlowAPIKey: s.LangFlowAPIKey,
		KeyOpenAIAPIKey:   s.OpenAIAPIKey,
		KeyPinnedPrompt:   s.PinnedPrompt,
		KeyOpenAIModel:    s.OpenAIModel,
	} {
		if v = strings.TrimSpace(v); v != "" {
			out[s.ParamName(key)] = v
		}
	}
	return out
}
