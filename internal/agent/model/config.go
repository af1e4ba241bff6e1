package model

import (
	"fmt"
	"strings"
	"time"
)

// ================ Config ================

// LLMConfig selects the chat model provider and the primary/fallback model names.
type LLMConfig struct {
	Provider      string  `envconfig:"LLM_PROVIDER" default:"groq"`
	PrimaryModel  string  `envconfig:"LLM_PRIMARY_MODEL" default:"llama-3.3-70b-versatile"`
	FallbackModel string  `envconfig:"LLM_FALLBACK_MODEL" default:"llama-3.1-8b-instant"`
	MaxTokens     int     `envconfig:"LLM_MAX_TOKENS" default:"4096"`
	Temperature   float32 `envconfig:"LLM_TEMPERATURE" default:"0.3"`

	GroqAPIKey    string `envconfig:"GROQ_API_KEY"`
	GroqBaseURL   string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
}

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Validate fails fast on a provider without credentials or model names.
func (c LLMConfig) Validate() error {
	switch strings.ToLower(c.Provider) {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required for provider %q", c.Provider)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.Provider)
	}
	if strings.TrimSpace(c.PrimaryModel) == "" {
		return fmt.Errorf("LLM_PRIMARY_MODEL is required")
	}
	if strings.TrimSpace(c.FallbackModel) == "" {
		return fmt.Errorf("LLM_FALLBACK_MODEL is required")
	}
	return nil
}

// ToolsConfig holds the outbound provider settings for the agent tools.
type ToolsConfig struct {
	WeatherAPIKey       string        `envconfig:"OPENWEATHER_API_KEY"`
	WeatherBaseURL      string        `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5"`
	ExchangeRateAPIKey  string        `envconfig:"EXCHANGE_RATE_API_KEY"`
	ExchangeRateBaseURL string        `envconfig:"EXCHANGE_RATE_BASE_URL" default:"https://v6.exchangerate-api.com/v6"`
	HTTPTimeout         time.Duration `envconfig:"TOOLS_HTTP_TIMEOUT" default:"15s"`
}

func (c ToolsConfig) Validate() error {
	if c.WeatherAPIKey == "" {
		return fmt.Errorf("OPENWEATHER_API_KEY is required")
	}
	if c.ExchangeRateAPIKey == "" {
		return fmt.Errorf("EXCHANGE_RATE_API_KEY is required")
	}
	return nil
}

// AgentConfig bounds a single agent invocation.
type AgentConfig struct {
	MaxToolRounds int           `envconfig:"AGENT_MAX_TOOL_ROUNDS" default:"5"`
	Timeout       time.Duration `envconfig:"AGENT_TIMEOUT" default:"120s"`
}

// ReplanRecordConfig controls how long replanned itineraries are kept.
type ReplanRecordConfig struct {
	TTL time.Duration `envconfig:"REPLAN_RECORD_TTL" default:"720h"`
}
