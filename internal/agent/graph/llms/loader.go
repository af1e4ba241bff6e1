package llms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/tripgenie/agent-server/internal/agent/model"
	errx "github.com/tripgenie/agent-server/internal/core/error"
	logx "github.com/tripgenie/agent-server/pkg/logger"
)

// Factory builds a tool-calling chat model handle for one model name.
type Factory func(ctx context.Context, modelName string) (einomodel.ToolCallingChatModel, error)

// ChatModel is a loaded model handle plus the model name it was built for.
// The name drives cost accounting.
type ChatModel struct {
	Model einomodel.ToolCallingChatModel
	Name  string
}

// Loader resolves a chat model, trying the primary model first and the
// fallback exactly once when the primary cannot be constructed.
type Loader struct {
	provider string
	primary  string
	fallback string
	factory  Factory
}

// NewLoader picks the provider factory from cfg.
func NewLoader(ctx context.Context, cfg model.LLMConfig) (*Loader, error) {
	var (
		factory Factory
		err     error
	)
	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case model.ProviderGroq:
		factory = NewGroqFactory(cfg)
	case model.ProviderGemini:
		factory, err = NewGeminiFactory(ctx, cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errx.Configuration(fmt.Sprintf("unsupported LLM_PROVIDER %q", cfg.Provider))
	}
	return NewLoaderWithFactory(provider, cfg.PrimaryModel, cfg.FallbackModel, factory), nil
}

func NewLoaderWithFactory(provider, primary, fallback string, factory Factory) *Loader {
	return &Loader{
		provider: provider,
		primary:  primary,
		fallback: fallback,
		factory:  factory,
	}
}

// Load returns a fresh model handle. No retry or backoff beyond the single
// fallback attempt.
func (l *Loader) Load(ctx context.Context) (*ChatModel, error) {
	cm, primaryErr := l.factory(ctx, l.primary)
	if primaryErr == nil {
		return &ChatModel{Model: cm, Name: l.primary}, nil
	}

	logx.Warn().
		Err(primaryErr).
		Str("provider", l.provider).
		Str("primary_model", l.primary).
		Str("fallback_model", l.fallback).
		Msg("primary chat model unavailable, trying fallback")

	cm, fallbackErr := l.factory(ctx, l.fallback)
	if fallbackErr == nil {
		return &ChatModel{Model: cm, Name: l.fallback}, nil
	}

	logx.Error().
		Err(fallbackErr).
		Str("provider", l.provider).
		Str("fallback_model", l.fallback).
		Msg("fallback chat model unavailable")

	return nil, errx.ModelInvocation(errors.Join(
		fmt.Errorf("primary %q: %w", l.primary, primaryErr),
		fmt.Errorf("fallback %q: %w", l.fallback, fallbackErr),
	))
}
