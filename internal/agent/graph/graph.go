package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tripgenie/agent-server/internal/agent/graph/conversations"
	"github.com/tripgenie/agent-server/internal/agent/graph/llms"
	"github.com/tripgenie/agent-server/internal/agent/graph/nodes"
	"github.com/tripgenie/agent-server/internal/agent/graph/observers"
	"github.com/tripgenie/agent-server/internal/agent/graph/prompts"
	"github.com/tripgenie/agent-server/internal/agent/graph/tools"
	"github.com/tripgenie/agent-server/internal/agent/model"
	errx "github.com/tripgenie/agent-server/internal/core/error"
	logx "github.com/tripgenie/agent-server/pkg/logger"
)

const (
	GraphQuery  = "query"
	GraphReplan = "replan"
)

// Runner executes a compiled agent graph and returns the final answer text.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (string, error)
}

// GraphConfig holds all configuration needed to build one agent graph.
type GraphConfig struct {
	Name          string
	ChatModel     *llms.ChatModel
	Tools         []tool.BaseTool
	RenderSystem  conversations.SystemRenderer
	MaxToolRounds int
}

// GraphBuilder handles the construction of the trip-planning agent graph:
//
//	START -> InputConverter -> ChatModel -(tool calls)-> ToolExecutor -> ChatModel
//	                                     -(answer / round cap)-> END
//
// Builders are single use; build a new one per request.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

// ReplanningGraphBuilder builds the same loop bound only to the replan
// context tool, with the replanning system prompt.
type ReplanningGraphBuilder struct {
	*GraphBuilder
}

// NewGraphBuilder returns a builder for the query graph (weather + currency tools).
func NewGraphBuilder(cm *llms.ChatModel, ts *tools.Toolset, maxToolRounds int) *GraphBuilder {
	return newGraphBuilder(&GraphConfig{
		Name:          GraphQuery,
		ChatModel:     cm,
		Tools:         ts.QueryTools(),
		RenderSystem:  prompts.RenderTravelSystem,
		MaxToolRounds: maxToolRounds,
	})
}

// NewReplanningGraphBuilder returns a builder for the replanning graph.
func NewReplanningGraphBuilder(cm *llms.ChatModel, ts *tools.Toolset, maxToolRounds int) *ReplanningGraphBuilder {
	return &ReplanningGraphBuilder{
		GraphBuilder: newGraphBuilder(&GraphConfig{
			Name:          GraphReplan,
			ChatModel:     cm,
			Tools:         ts.ReplanTools(),
			RenderSystem:  prompts.RenderReplanSystem,
			MaxToolRounds: maxToolRounds,
		}),
	}
}

func newGraphBuilder(config *GraphConfig) *GraphBuilder {
	config.MaxToolRounds = nodes.NormalizeMaxToolRounds(config.MaxToolRounds)
	return &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}
}

type graphRunner struct {
	name          string
	maxToolRounds int
	runnable      compose.Runnable[model.QueryInput, *schema.Message]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}

	// only reachable at the round cap: the model still wants tools and gave no text
	if len(out.ToolCalls) > 0 && strings.TrimSpace(out.Content) == "" {
		logx.Warn().
			Str("graph", r.name).
			Int("max_tool_rounds", r.maxToolRounds).
			Msg("Agent stopped at tool round limit without an answer")
		return "", errx.ToolLimit(r.maxToolRounds)
	}

	if total, ok := out.Extra["usage_cost_total_usd"].(float64); ok {
		logx.Info().Str("graph", r.name).Float64("total_cost_usd", total).Msg("Agent run finished")
	}
	return out.Content, nil
}

// Build validates the config, wires the graph and compiles it.
func (b *GraphBuilder) Build(ctx context.Context) (Runner, error) {
	if b.config.ChatModel == nil || b.config.ChatModel.Model == nil {
		return nil, fmt.Errorf("chat model is not initialized")
	}
	if b.config.RenderSystem == nil {
		return nil, fmt.Errorf("system prompt renderer is nil")
	}
	if len(b.config.Tools) == 0 {
		return nil, fmt.Errorf("graph %s has no tools", b.config.Name)
	}

	if err := b.setupTools(ctx); err != nil {
		return nil, err
	}
	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}

	runnable, err := b.compile(ctx)
	if err != nil {
		return nil, err
	}
	return &graphRunner{
		name:          b.config.Name,
		maxToolRounds: b.config.MaxToolRounds,
		runnable:      runnable,
	}, nil
}

// setupTools binds the tools to the chat model and adds the ToolExecutor node.
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolInfos, err := tools.GetToolInfos(ctx, b.config.Tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	bound, err := b.config.ChatModel.Model.WithTools(toolInfos)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}
	b.config.ChatModel = &llms.ChatModel{Model: bound, Name: b.config.ChatModel.Name}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               b.config.Tools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().
				Str("graph", b.config.Name).
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return tools.SanitizeArguments(name, arguments), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	if err := b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler()),
	); err != nil {
		return fmt.Errorf("add tools node: %w", err)
	}
	return nil
}

func (b *GraphBuilder) addNodes() error {
	mm := conversations.NewMessagesManager(b.config.RenderSystem, b.config.MaxToolRounds)

	if err := b.graph.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(mm),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler(b.config.Name)),
	); err != nil {
		return fmt.Errorf("add input converter node: %w", err)
	}

	if err := b.graph.AddChatModelNode(nodes.NodeChatModel,
		b.config.ChatModel.Model,
		compose.WithStatePreHandler(nodes.NewChatModelPreHandler(b.config.MaxToolRounds)),
		compose.WithStatePostHandler(nodes.NewChatModelPostHandler(b.config.ChatModel.Name)),
	); err != nil {
		return fmt.Errorf("add chat model node: %w", err)
	}
	return nil
}

func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeChatModel},
		{nodes.NodeToolExecutor, nodes.NodeChatModel},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

func (b *GraphBuilder) addBranches() error {
	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph. The round cap in the state
// handlers ends the loop; the step limit is a backstop.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	maxSteps := 10 + b.config.MaxToolRounds*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName(b.config.Name),
		compose.WithMaxRunSteps(maxSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Str("graph", b.config.Name).Str("model", b.config.ChatModel.Name).Msg("Graph compiled successfully")
	return runnable, nil
}
