package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai"

	errx "github.com/tripgenie/agent-server/internal/core/error"
)

func newCompletionServer(t *testing.T, status int, body string, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestModel(t *testing.T, baseURL string) *OpenAIChatModel {
	t.Helper()
	m, err := NewOpenAIChatModel(OpenAIConfig{
		Service:     "groq",
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "llama-3.3-70b-versatile",
		MaxTokens:   256,
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

const toolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "llama-3.3-70b-versatile",
  "choices": [{
    "index": 0,
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{"id": "", "type": "function", "function": {"name": "get_current_weather", "arguments": "{\"place\":\"Paris\"}"}}]
    },
    "finish_reason": "tool_calls"
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`

func TestOpenAIChatModelGenerateWithTools(t *testing.T) {
	var req openai.ChatCompletionRequest
	srv := newCompletionServer(t, http.StatusOK, toolCallResponse, &req)

	bound, err := newTestModel(t, srv.URL).WithTools([]*schema.ToolInfo{{
		Name: "get_current_weather",
		Desc: "Get current weather for a place.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"place": {Type: schema.String, Required: true},
		}),
	}})
	if err != nil {
		t.Fatalf("with tools: %v", err)
	}

	out, err := bound.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("you plan trips"),
		schema.UserMessage("weather in Paris?"),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if req.Model != "llama-3.3-70b-versatile" || req.MaxTokens != 256 {
		t.Fatalf("unexpected request model/max tokens: %q %d", req.Model, req.MaxTokens)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem || req.Messages[1].Role != openai.ChatMessageRoleUser {
		t.Fatalf("unexpected request messages: %+v", req.Messages)
	}
	if len(req.Tools) != 1 || req.Tools[0].Function.Name != "get_current_weather" {
		t.Fatalf("unexpected request tools: %+v", req.Tools)
	}
	params, _ := json.Marshal(req.Tools[0].Function.Parameters)
	if !strings.Contains(string(params), `"place"`) {
		t.Fatalf("tool parameters missing place: %s", params)
	}

	if len(out.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %+v", out.ToolCalls)
	}
	tc := out.ToolCalls[0]
	if tc.Function.Name != "get_current_weather" || tc.Function.Arguments != `{"place":"Paris"}` {
		t.Fatalf("unexpected tool call %+v", tc)
	}
	if !strings.HasPrefix(tc.ID, "call_") {
		t.Fatalf("expected synthesized tool call id, got %q", tc.ID)
	}
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil || out.ResponseMeta.Usage.TotalTokens != 17 {
		t.Fatalf("usage not mapped: %+v", out.ResponseMeta)
	}
}

func TestOpenAIChatModelSendsToolResults(t *testing.T) {
	var req openai.ChatCompletionRequest
	srv := newCompletionServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"Sunny, 21C."},"finish_reason":"stop"}]}`, &req)

	out, err := newTestModel(t, srv.URL).Generate(context.Background(), []*schema.Message{
		schema.UserMessage("weather in Paris?"),
		schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call_1",
			Function: schema.FunctionCall{Name: "get_current_weather", Arguments: `{"place":"Paris"}`},
		}}),
		schema.ToolMessage(`{"name":"Paris"}`, "call_1"),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Content != "Sunny, 21C." {
		t.Fatalf("unexpected content %q", out.Content)
	}

	if len(req.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(req.Messages))
	}
	if got := req.Messages[1].ToolCalls; len(got) != 1 || got[0].ID != "call_1" {
		t.Fatalf("assistant tool calls not forwarded: %+v", got)
	}
	if req.Messages[2].Role != openai.ChatMessageRoleTool || req.Messages[2].ToolCallID != "call_1" {
		t.Fatalf("tool result not forwarded: %+v", req.Messages[2])
	}
}

func TestOpenAIChatModelAPIErrorIsProviderError(t *testing.T) {
	srv := newCompletionServer(t, http.StatusUnauthorized, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`, nil)

	_, err := newTestModel(t, srv.URL).Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if errx.KindOf(err) != errx.KindProvider {
		t.Fatalf("expected provider error, got %v", err)
	}
	if errx.StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", errx.StatusOf(err))
	}
}

func TestOpenAIChatModelStream(t *testing.T) {
	srv := newCompletionServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"done"}}]}`, nil)

	sr, err := newTestModel(t, srv.URL).Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer sr.Close()
	msg, err := sr.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if msg.Content != "done" {
		t.Fatalf("unexpected content %q", msg.Content)
	}
}

func TestNewOpenAIChatModelRequiresKeyAndModel(t *testing.T) {
	if _, err := NewOpenAIChatModel(OpenAIConfig{Service: "groq", Model: "m"}); errx.KindOf(err) != errx.KindConfiguration {
		t.Fatalf("expected configuration error for missing key, got %v", err)
	}
	if _, err := NewOpenAIChatModel(OpenAIConfig{Service: "groq", APIKey: "k"}); errx.KindOf(err) != errx.KindConfiguration {
		t.Fatalf("expected configuration error for missing model, got %v", err)
	}
}
