package nodes

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/tripgenie/agent-server/internal/agent/model"
)

func TestChatModelPreHandlerAppendsAndCaps(t *testing.T) {
	pre := NewChatModelPreHandler(2)
	state := &model.AppState{GraphName: "query"}

	seed := []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("q")}
	got, err := pre(context.Background(), seed, state)
	if err != nil {
		t.Fatalf("pre: %v", err)
	}
	if len(got) != 2 || state.ToolLimitReached {
		t.Fatalf("unexpected history %d / limit %v", len(got), state.ToolLimitReached)
	}

	state.ToolRounds = 2
	got, err = pre(context.Background(), []*schema.Message{schema.ToolMessage("{}", "call_1")}, state)
	if err != nil {
		t.Fatalf("pre: %v", err)
	}
	if !state.ToolLimitReached {
		t.Fatalf("expected limit to be marked at 2 rounds")
	}
	last := got[len(got)-1]
	if last.Role != schema.System || !strings.Contains(last.Content, "maximum number of tool rounds (2)") {
		t.Fatalf("expected wrap-up notice, got %+v", last)
	}

	// the notice is appended once
	before := len(state.History)
	if _, err := pre(context.Background(), nil, state); err != nil {
		t.Fatalf("pre: %v", err)
	}
	if len(state.History) != before {
		t.Fatalf("wrap-up notice appended twice")
	}
}

func TestChatModelPostHandlerSynthesizesIDsAndCost(t *testing.T) {
	post := NewChatModelPostHandler("llama-3.3-70b-versatile")
	state := &model.AppState{}

	out := &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{Function: schema.FunctionCall{Name: "get_current_weather", Arguments: `{"place":"Paris"}`}},
			{ID: "provider-id", Function: schema.FunctionCall{Name: "convert_currency"}},
		},
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{
			PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000,
		}},
	}

	got, err := post(context.Background(), out, state)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if got.ToolCalls[0].ID != "call_1" || got.ToolCalls[1].ID != "provider-id" {
		t.Fatalf("unexpected tool call ids: %q %q", got.ToolCalls[0].ID, got.ToolCalls[1].ID)
	}
	if state.ModelInvocations != 1 || len(state.History) != 1 {
		t.Fatalf("state not updated: %+v", state)
	}
	if state.TotalCostUSD <= 0 {
		t.Fatalf("expected cost to accumulate, got %f", state.TotalCostUSD)
	}
	if _, ok := got.Extra["usage_cost"]; !ok {
		t.Fatalf("usage cost missing from Extra")
	}

	if _, err := post(context.Background(), nil, state); err == nil {
		t.Fatalf("expected error for nil model output")
	}
}

func TestToolExecutorPreHandlerCountsRounds(t *testing.T) {
	pre := NewToolExecutorPreHandler()
	state := &model.AppState{}
	msg := schema.AssistantMessage("", []schema.ToolCall{{ID: "a", Function: schema.FunctionCall{Name: "x"}}})

	for i := 1; i <= 3; i++ {
		if _, err := pre(context.Background(), msg, state); err != nil {
			t.Fatalf("pre: %v", err)
		}
		if state.ToolRounds != i {
			t.Fatalf("round %d: got %d", i, state.ToolRounds)
		}
	}
}

func TestNormalizeMaxToolRounds(t *testing.T) {
	if NormalizeMaxToolRounds(0) != DefaultMaxToolRounds || NormalizeMaxToolRounds(-3) != DefaultMaxToolRounds {
		t.Fatalf("non-positive values must fall back to the default")
	}
	if NormalizeMaxToolRounds(7) != 7 {
		t.Fatalf("positive values must be kept")
	}
}
