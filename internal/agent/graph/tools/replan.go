package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// ===================================
// Replanning Context Tool
// ===================================

type ReplanInput struct {
	Destination  string `json:"destination"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Guests       int    `json:"guests"`
	Budget       string `json:"budget"`
	TripType     string `json:"trip_type"`
	OriginalPlan string `json:"original_plan"`
	AlertDetails string `json:"alert_details"`
}

const replanContextTemplate = `ORIGINAL TRIP DETAILS:
- Destination: %s
- Dates: %s to %s
- Guests: %d
- Budget: %s
- Trip Type: %s

ORIGINAL PLAN:
%s

DISRUPTION ALERT:
%s

Please replan this trip based on the disruption above.`

// GenerateReplanContext structures trip and alert data for the model to
// reason about. It performs no I/O and is deterministic.
func GenerateReplanContext(in ReplanInput) string {
	return fmt.Sprintf(replanContextTemplate,
		in.Destination,
		in.StartDate, in.EndDate,
		in.Guests,
		in.Budget,
		in.TripType,
		in.OriginalPlan,
		in.AlertDetails,
	)
}

func createReplanContextTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGenerateReplanContext,
			Desc: "Structures the original trip plan and disruption alert so the LLM can generate a revised itinerary.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"destination":   {Type: schema.String, Desc: "The trip destination", Required: true},
				"start_date":    {Type: schema.String, Desc: "Trip start date", Required: true},
				"end_date":      {Type: schema.String, Desc: "Trip end date", Required: true},
				"guests":        {Type: schema.Integer, Desc: "Number of guests", Required: true},
				"budget":        {Type: schema.String, Desc: "Budget category: affordable, mid-range, or luxury", Required: true},
				"trip_type":     {Type: schema.String, Desc: "Type of trip: leisure, adventure, cultural, family, romantic, business", Required: true},
				"original_plan": {Type: schema.String, Desc: "The original AI-generated travel plan", Required: true},
				"alert_details": {Type: schema.String, Desc: "Weather or disruption alert details that triggered replanning", Required: true},
			}),
		},
		func(_ context.Context, in *ReplanInput) (string, error) {
			return GenerateReplanContext(*in), nil
		},
	)
}
