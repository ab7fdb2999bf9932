package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"support-chat/internal/domain"
	"support-chat/internal/integrations/paramstore"
)

const defaultModel = "gpt-4o-mini"

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
	Moderate(ctx context.Context, input string) (bool, error)
}

// LLMParamNames are the full parameter store names the responder reads.
type LLMParamNames struct {
	PinnedPrompt string
	Model        string
}

// LLMResponder answers questions with an OpenAI-compatible model. The pinned
// prompt and model name are read from the parameter store once and cached;
// a failed load is retried on the next question.
type LLMResponder struct {
	params paramstore.Getter
	llm    LLMClient
	names  LLMParamNames

	cacheMu      sync.RWMutex
	cacheLoaded  bool
	pinnedPrompt string
	model        string
}

func NewLLMResponder(p paramstore.Getter, llm LLMClient, names LLMParamNames) (*LLMResponder, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	names.PinnedPrompt = strings.TrimSpace(names.PinnedPrompt)
	names.Model = strings.TrimSpace(names.Model)
	if names.PinnedPrompt == "" || names.Model == "" {
		return nil, errors.New("usecase: parameter names must not be empty")
	}
	return &LLMResponder{params: p, llm: llm, names: names}, nil
}

func (r *LLMResponder) Respond(ctx context.Context, q domain.Question) (domain.Reply, error) {
	if err := r.ensureConfig(ctx); err != nil {
		return domain.Reply{}, newError(ErrorInternal, "ssm_load_error", err)
	}

	flagged, err := r.llm.Moderate(ctx, q.Text)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return domain.Reply{}, newError(ErrorRateLimited, "moderation_rate_limited", err)
		}
		return domain.Reply{}, newError(ErrorUpstream, "moderation_error", err)
	}
	if flagged {
		return domain.Reply{}, newError(ErrorInvalidQuestion, "moderation_flagged", nil)
	}

	r.cacheMu.RLock()
	pinned, model := r.pinnedPrompt, r.model
	r.cacheMu.RUnlock()

	raw, err := r.llm.Chat(ctx, model, buildPromptMessages(pinned, q.Text, q.History))
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return domain.Reply{}, newError(ErrorRateLimited, "openai_rate_limited", err)
		}
		return domain.Reply{}, newError(ErrorUpstream, "openai_error", err)
	}

	routed, err := parseRoutedAnswer(raw)
	if err != nil {
		return domain.Reply{}, newError(ErrorUpstream, "openai_malformed_response", err)
	}
	agent, ok := domain.ParseAgentCategory(routed.AgentType)
	if !ok {
		agent = domain.AgentGeneralSupport
	}
	return domain.Reply{Text: routed.Answer, Agent: agent}, nil
}

func (r *LLMResponder) ensureConfig(ctx context.Context) error {
	r.cacheMu.RLock()
	if r.cacheLoaded {
		r.cacheMu.RUnlock()
		return nil
	}
	r.cacheMu.RUnlock()

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if r.cacheLoaded {
		return nil
	}

	pinned, err := r.optionalParam(ctx, r.names.PinnedPrompt, "")
	if err != nil {
		return fmt.Errorf("usecase: load pinned prompt: %w", err)
	}
	model, err := r.optionalParam(ctx, r.names.Model, defaultModel)
	if err != nil {
		return fmt.Errorf("usecase: load openai model: %w", err)
	}

	r.pinnedPrompt = pinned
	r.model = model
	r.cacheLoaded = true
	return nil
}

// optionalParam returns def when the parameter does not exist. Any other
// lookup failure is returned.
func (r *LLMResponder) optionalParam(ctx context.Context, name, def string) (string, error) {
	v, err := r.params.GetParameter(ctx, name)
	if errors.Is(err, paramstore.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	if v = strings.TrimSpace(v); v == "" {
		return def, nil
	}
	return v, nil
}
