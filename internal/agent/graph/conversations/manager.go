package conversations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/tripgenie/agent-server/internal/agent/model"
)

// SystemRenderer renders a graph's system prompt for a tool round cap.
type SystemRenderer func(ctx context.Context, maxToolRounds int) (string, error)

// MessagesManager builds the seed message sequence of one graph invocation.
// Nothing is persisted; every request starts from an empty history.
type MessagesManager struct {
	renderSystem  SystemRenderer
	maxToolRounds int
}

func NewMessagesManager(renderSystem SystemRenderer, maxToolRounds int) *MessagesManager {
	return &MessagesManager{
		renderSystem:  renderSystem,
		maxToolRounds: maxToolRounds,
	}
}

// BuildSeedContext returns [system prompt, user question].
func (mm *MessagesManager) BuildSeedContext(ctx context.Context, question string) ([]*schema.Message, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is empty")
	}
	systemPrompt, err := mm.renderSystem(ctx, mm.maxToolRounds)
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(question),
	}, nil
}

// RenderReplanQuestion turns a structured replan request into the user
// question of the replanning graph. The alert is encoded as JSON; map keys
// come out sorted, so equal requests render identically.
func RenderReplanQuestion(req model.ReplanRequest) (string, error) {
	alert := req.Alert
	if alert == nil {
		alert = map[string]any{}
	}
	alertJSON, err := json.Marshal(alert)
	if err != nil {
		return "", fmt.Errorf("encode alert: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Replan this trip to %s from %s to %s\n", req.Destination, req.StartDate, req.EndDate)
	fmt.Fprintf(&b, "for %d guest(s) with a %s budget. Trip type: %s.\n", req.Guests, req.Budget, req.TripType)
	fmt.Fprintf(&b, "Original plan: %s\n", req.AIResponse)
	fmt.Fprintf(&b, "Disruption alert: %s", alertJSON)
	return b.String(), nil
}
