package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/tripgenie/agent-server/internal/agent/model"
)

const (
	ToolGetCurrentWeather     = "get_current_weather"
	ToolGetForecastWeather    = "get_forecast_weather"
	ToolConvertCurrency       = "convert_currency"
	ToolGenerateReplanContext = "generate_replan_context"
)

// Toolset owns the provider clients behind the agent tools. It is built once
// at startup and shared read-only by every request; the underlying
// http.Client pools connections.
type Toolset struct {
	Weather  *WeatherClient
	Currency *CurrencyClient
}

func NewToolset(cfg model.ToolsConfig) *Toolset {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	return &Toolset{
		Weather:  NewWeatherClient(httpClient, cfg.WeatherBaseURL, cfg.WeatherAPIKey),
		Currency: NewCurrencyClient(httpClient, cfg.ExchangeRateBaseURL, cfg.ExchangeRateAPIKey),
	}
}

// QueryTools returns the tools bound to the trip-planning graph.
func (ts *Toolset) QueryTools() []tool.BaseTool {
	return []tool.BaseTool{
		createCurrentWeatherTool(ts.Weather),
		createForecastWeatherTool(ts.Weather),
		createConvertCurrencyTool(ts.Currency),
	}
}

// ReplanTools returns the tools bound to the replanning graph.
func (ts *Toolset) ReplanTools() []tool.BaseTool {
	return []tool.BaseTool{
		createReplanContextTool(),
	}
}

// GetToolInfos collects the schema of every tool for binding to a chat model.
func GetToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// SanitizeArguments normalizes model-produced tool arguments before dispatch.
// It never fails: anything it cannot parse is passed through unchanged and
// left to the tool's own validation.
func SanitizeArguments(name, arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}

	switch name {
	case ToolGetCurrentWeather, ToolGetForecastWeather:
		trimString(m, "place")
	case ToolConvertCurrency:
		for _, k := range []string{"from_currency", "to_currency"} {
			if v, ok := m[k].(string); ok {
				m[k] = strings.ToUpper(strings.TrimSpace(v))
			}
		}
		// some models send numbers as strings
		if v, ok := m["amount"].(string); ok {
			var f float64
			if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
				m["amount"] = f
			}
		}
	case ToolGenerateReplanContext:
		for _, k := range []string{"destination", "start_date", "end_date", "budget", "trip_type"} {
			trimString(m, k)
		}
		if v, ok := m["guests"].(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f == math.Trunc(f) {
				m["guests"] = int(f)
			}
		}
		// alert payloads sometimes arrive as objects rather than text
		if v, ok := m["alert_details"]; ok {
			if _, isString := v.(string); !isString {
				if b, err := json.Marshal(v); err == nil {
					m["alert_details"] = string(b)
				}
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}

func trimString(m map[string]any, key string) {
	if v, ok := m[key].(string); ok {
		m[key] = strings.TrimSpace(v)
	}
}
