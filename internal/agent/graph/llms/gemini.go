package llms

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/tripgenie/agent-server/internal/agent/model"
	errx "github.com/tripgenie/agent-server/internal/core/error"
	logx "github.com/tripgenie/agent-server/pkg/logger"
)

// NewGeminiFactory creates the genai client once; each Factory call only
// builds a lightweight chat model on top of it.
func NewGeminiFactory(ctx context.Context, cfg model.LLMConfig) (Factory, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, errx.Configuration("GEMINI_API_KEY is required for provider gemini")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	return func(ctx context.Context, modelName string) (einomodel.ToolCallingChatModel, error) {
		if strings.TrimSpace(modelName) == "" {
			return nil, errx.Configuration("gemini model name is required")
		}
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       modelName,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating Gemini model %s: %w", modelName, err)
		}
		return cm, nil
	}, nil
}
