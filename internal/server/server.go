// Package server assembles the /chat backend from configuration.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"support-chat/handler"
	"support-chat/internal/config"
	"support-chat/internal/integrations/langflow"
	"support-chat/internal/integrations/openai"
	"support-chat/internal/integrations/paramstore"
	"support-chat/internal/repository"
	"support-chat/internal/usecase"
)

// upstreamTimeout bounds one responder call.
const upstreamTimeout = 60 * time.Second

// AWSConfigLoader is swapped in tests so no credentials are needed.
type AWSConfigLoader func(ctx context.Context) (aws.Config, error)

func DefaultAWSConfig(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// Build wires the chat handler. AWS configuration is only loaded when the
// parameter source is SSM or a state table is configured.
func Build(ctx context.Context, cfg config.Server, loadAWS AWSConfigLoader, logger zerolog.Logger) (*handler.Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var awsCfg *aws.Config
	needAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		if loadAWS == nil {
			loadAWS = DefaultAWSConfig
		}
		c, err := loadAWS(ctx)
		if err != nil {
			return aws.Config{}, errors.Wrap(err, "server: load AWS config")
		}
		awsCfg = &c
		return c, nil
	}

	params := paramstore.Chain{paramstore.Static(cfg.StaticParams())}
	if cfg.ParamSource == config.ParamSourceSSM {
		c, err := needAWS()
		if err != nil {
			return nil, err
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(c))
		if err != nil {
			return nil, errors.Wrap(err, "server: create SSM client")
		}
		params = append(params, ssmClient)
	}

	var state repository.ReadWriter
	if cfg.StateTable != "" {
		c, err := needAWS()
		if err != nil {
			return nil, err
		}
		ddb, err := repository.New(awsdynamodb.NewFromConfig(c), cfg.StateTable)
		if err != nil {
			return nil, errors.Wrap(err, "server: create state client")
		}
		state = ddb
	} else {
		logger.Warn().Msg("STATE_TABLE not set, conversation history is kept in memory")
		state = repository.NewMemory()
	}

	responder, err := buildResponder(cfg, params, logger)
	if err != nil {
		return nil, err
	}

	svc, err := usecase.NewChatService(responder, state, usecase.Limits{
		MaxContextItems: cfg.MaxContextItems,
		MaxQuestionLen:  cfg.MaxQuestionLen,
		MaxTurns:        cfg.MaxTurns,
	}, usecase.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "server: create chat service")
	}

	h, err := handler.NewHandler(svc,
		handler.WithLogger(logger),
		handler.WithAllowedOrigins(cfg.AllowedOrigins),
	)
	if err != nil {
		return nil, errors.Wrap(err, "server: create handler")
	}
	logger.Info().
		Str("responder", cfg.Responder).
		Str("param_source", cfg.ParamSource).
		Bool("dynamodb", cfg.StateTable != "").
		Msg("chat backend ready")
	return h, nil
}

func buildResponder(cfg config.Server, params paramstore.Getter, logger zerolog.Logger) (usecase.Responder, error) {
	httpClient := &http.Client{Timeout: upstreamTimeout}
	switch cfg.Responder {
	case config.ResponderLangFlow:
		lf, err := langflow.NewClient(params, cfg.LangFlowHost, cfg.LangFlowFlowID,
			cfg.ParamName(config.KeyLangFlowAPIKey),
			langflow.WithHTTPClient(httpClient),
			langflow.WithLogger(logger.With().Str("component", "langflow").Logger()),
		)
		if err != nil {
			return nil, errors.Wrap(err, "server: create langflow client")
		}
		return lf, nil
	case config.ResponderLLM:
		llm, err := openai.NewClient(params, cfg.ParamName(config.KeyOpenAIAPIKey),
			openai.WithBaseURL(cfg.OpenAIBaseURL),
			openai.WithHTTPClient(httpClient),
			openai.WithLogger(logger.With().Str("component", "openai").Logger()),
		)
		if err != nil {
			return nil, errors.Wrap(err, "server: create openai client")
		}
		r, err := usecase.NewLLMResponder(params, llm, usecase.LLMParamNames{
			PinnedPrompt: cfg.ParamName(config.KeyPinnedPrompt),
			Model:        cfg.ParamName(config.KeyOpenAIModel),
		})
		if err != nil {
			return nil, errors.Wrap(err, "server: create llm responder")
		}
		return r, nil
	}
	return nil, errors.Errorf("server: unknown responder %q", cfg.Responder)
}
