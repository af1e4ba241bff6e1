package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tripgenie/agent-server/internal/agent/graph/conversations"
	"github.com/tripgenie/agent-server/internal/agent/model"
	logx "github.com/tripgenie/agent-server/pkg/logger"
)

// wrapUpNotice is appended once when the tool round cap is reached.
const wrapUpNotice = "SYSTEM NOTICE: You have reached the maximum number of tool rounds (%d). " +
	"Do not call any more tools. Write your final answer now using the information you've already gathered, " +
	"and say which details you could not verify."

// NewInputConverterPreHandler tags the fresh per-invocation state with the graph name.
func NewInputConverterPreHandler(graphName string) func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		s.GraphName = graphName
		s.ToolRounds = 0
		s.ToolLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode seeds the message sequence with the system prompt and the question.
func NewInputConverterNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		messages, err := mm.BuildSeedContext(ctx, input.Question)
		if err != nil {
			return nil, fmt.Errorf("build seed context: %w", err)
		}
		return messages, nil
	})
}

// NewChatModelPreHandler appends the node input (seed messages or tool
// results) to the history and feeds the whole history to the model.
func NewChatModelPreHandler(maxToolRounds int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolRounds) {
			rounds := NormalizeMaxToolRounds(maxToolRounds)
			logx.Warn().
				Str("graph", state.GraphName).
				Int("tool_rounds", state.ToolRounds).
				Int("max_tool_rounds", rounds).
				Msg("Tool round limit reached - asking model to wrap up")
			state.History = append(state.History, schema.SystemMessage(fmt.Sprintf(wrapUpNotice, rounds)))
		}

		logx.Debug().
			Str("graph", state.GraphName).
			Int("history_len", len(state.History)).
			Msg("AI thinking...")

		return state.History, nil
	}
}

// NewChatModelPostHandler records usage cost, fills in missing tool call IDs
// and appends the model output to the history.
func NewChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("chat model returned no message")
		}
		state.ModelInvocations++

		if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			pricing := model.ResolvePricing(modelName)
			inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra["usage_cost"] = map[string]any{
				"currency":          "USD",
				"model":             modelName,
				"prompt_tokens":     out.ResponseMeta.Usage.PromptTokens,
				"completion_tokens": out.ResponseMeta.Usage.CompletionTokens,
				"total_tokens":      out.ResponseMeta.Usage.TotalTokens,
				"input_cost":        inC,
				"output_cost":       outC,
				"total_cost":        totalC,
			}
			logx.Debug().
				Str("graph", state.GraphName).
				Str("node", NodeChatModel).
				Str("model", modelName).
				Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
				Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
				Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")

			state.TotalCostUSD += totalC
			out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
		}

		// some providers omit tool call IDs; tool results must reference one
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Str("graph", state.GraphName).Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Str("graph", state.GraphName).Msg("AI response ready")
		}
		return out, nil
	}
}

// NewToolExecutorCondition routes a model output to the tools or to END.
// Once the round cap is reached every output ends the run.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolLimitReached
			return nil
		}); err != nil {
			return "", fmt.Errorf("read graph state: %w", err)
		}

		if limitReached {
			logx.Debug().Msg("Tool limit reached - routing to end")
			return compose.END, nil
		}
		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		logx.Debug().Msg("No tool calls - continuing to end")
		return compose.END, nil
	}
}

// NewToolExecutorPreHandler counts tool rounds.
func NewToolExecutorPreHandler() func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		rounds := incrementToolRound(state)
		names := make([]string, 0, len(in.ToolCalls))
		for _, tc := range in.ToolCalls {
			names = append(names, tc.Function.Name)
		}
		logx.Debug().
			Str("graph", state.GraphName).
			Int("tool_round", rounds).
			Strs("tools", names).
			Msg("Tool execution round")
		return in, nil
	}
}
