// Package decision turns market data and collected signals into trade
// decisions, either through an LLM provider or a deterministic fallback.
package decision

import (
	"context"
	"errors"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/PolyBot/internal/config"
)

// ErrNoProvider is returned when no LLM API key is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// Provider answers a single prompt with a text completion.
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// chatProvider adapts an eino chat model to the Provider interface.
type chatProvider struct {
	name  string
	model model.BaseChatModel
}

func (p *chatProvider) Name() string { return p.name }

func (p *chatProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	msg, err := p.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// NewProviderFromConfig builds the preferred available provider:
// Anthropic first, then OpenAI. Returns ErrNoProvider when neither
// key is set.
func NewProviderFromConfig(ctx context.Context, cfg *config.Config) (Provider, error) {
	if cfg.AnthropicAPIKey != "" {
		m, err := claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1000,
		})
		if err != nil {
			return nil, err
		}
		return &chatProvider{name: "anthropic", model: m}, nil
	}

	if cfg.OpenAIAPIKey != "" {
		maxTokens := 1000
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     "gpt-4o-mini",
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, err
		}
		return &chatProvider{name: "openai", model: m}, nil
	}

	return nil, ErrNoProvider
}
