package model

import (
	"math"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestComputeCost(t *testing.T) {
	p := Pricing{InputPerM: 1.0, OutputPerM: 2.0}
	in, out, total := ComputeCost(&schema.TokenUsage{PromptTokens: 500_000, CompletionTokens: 250_000}, p)
	if math.Abs(in-0.5) > 1e-9 || math.Abs(out-0.5) > 1e-9 || math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("unexpected cost: in=%f out=%f total=%f", in, out, total)
	}

	if _, _, total := ComputeCost(nil, p); total != 0 {
		t.Fatalf("expected zero cost for nil usage, got %f", total)
	}
}

func TestResolvePricingUnknownModel(t *testing.T) {
	if p := ResolvePricing("no-such-model"); p != (Pricing{}) {
		t.Fatalf("expected zero pricing, got %+v", p)
	}
}

func TestLLMConfigValidate(t *testing.T) {
	base := LLMConfig{Provider: "groq", PrimaryModel: "a", FallbackModel: "b", GroqAPIKey: "k"}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	missingKey := base
	missingKey.GroqAPIKey = ""
	if err := missingKey.Validate(); err == nil {
		t.Fatalf("expected error for missing groq key")
	}

	gemini := base
	gemini.Provider = "gemini"
	if err := gemini.Validate(); err == nil {
		t.Fatalf("expected error for missing gemini key")
	}

	unknown := base
	unknown.Provider = "other"
	if err := unknown.Validate(); err == nil {
		t.Fatalf("expected error for unknown provider")
	}

	noFallback := base
	noFallback.FallbackModel = " "
	if err := noFallback.Validate(); err == nil {
		t.Fatalf("expected error for missing fallback model")
	}
}
