package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/tripgenie/agent-server/internal/agent/graph/tools"
)

//go:embed template/travel_prompt.txt
var travelSystemPrompt string

//go:embed template/replan_prompt.txt
var replanSystemPrompt string

// RenderTravelSystem renders the trip-planning system prompt via the Eino
// prompt component, which also fires prompt callbacks.
func RenderTravelSystem(ctx context.Context, maxToolRounds int) (string, error) {
	return render(ctx, "travel", travelSystemPrompt, map[string]any{
		"CurrentWeatherTool":  tools.ToolGetCurrentWeather,
		"ForecastWeatherTool": tools.ToolGetForecastWeather,
		"CurrencyTool":        tools.ToolConvertCurrency,
		"MaxToolRounds":       maxToolRounds,
	})
}

// RenderReplanSystem renders the replanning system prompt.
func RenderReplanSystem(ctx context.Context, maxToolRounds int) (string, error) {
	return render(ctx, "replan", replanSystemPrompt, map[string]any{
		"ReplanContextTool": tools.ToolGenerateReplanContext,
		"MaxToolRounds":     maxToolRounds,
	})
}

func render(ctx context.Context, name, system string, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(system),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}
