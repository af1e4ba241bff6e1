package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	errx "github.com/tripgenie/agent-server/internal/core/error"
	logx "github.com/tripgenie/agent-server/pkg/logger"
)

// ===================================
// Weather Tools
// ===================================

const (
	weatherService = "openweather"
	// forecastCount is the number of 3-hour forecast entries requested by the tool.
	forecastCount = 10
)

type WeatherInput struct {
	Place string `json:"place"`
}

// WeatherClient calls the OpenWeather current/forecast endpoints. Responses
// are returned as raw JSON, unmodified, whatever the HTTP status.
type WeatherClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewWeatherClient(httpClient *http.Client, baseURL, apiKey string) *WeatherClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WeatherClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Current returns the provider's current-weather JSON for place.
func (c *WeatherClient) Current(ctx context.Context, place string) (string, error) {
	params := url.Values{}
	params.Set("q", place)
	params.Set("appid", c.apiKey)
	return c.get(ctx, "/weather", params)
}

// Forecast returns the provider's metric forecast JSON for place, limited to count entries.
func (c *WeatherClient) Forecast(ctx context.Context, place string, count int) (string, error) {
	params := url.Values{}
	params.Set("q", place)
	params.Set("appid", c.apiKey)
	params.Set("cnt", strconv.Itoa(count))
	params.Set("units", "metric")
	return c.get(ctx, "/forecast", params)
}

func (c *WeatherClient) get(ctx context.Context, path string, params url.Values) (string, error) {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errx.Provider(weatherService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errx.Provider(weatherService, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// passed through untouched; the model reads the provider's error payload
		logx.Warn().
			Str("component", "weather_tool").
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("weather provider returned non-success status")
	}
	return string(body), nil
}

// newWeatherTool adapts one WeatherClient endpoint to an eino tool. String
// results reach the model unchanged.
func newWeatherTool(name, desc string, call func(ctx context.Context, place string) (string, error)) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        name,
			Desc:        desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(weatherParams()),
		},
		func(ctx context.Context, in *WeatherInput) (string, error) {
			if strings.TrimSpace(in.Place) == "" {
				return "", errx.ToolArguments(name, "place is required")
			}
			return call(ctx, in.Place)
		},
	)
}

func weatherParams() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"place": {
			Type:     schema.String,
			Desc:     "The city or location name, e.g. Paris or Kyoto, JP",
			Required: true,
		},
	}
}

func createCurrentWeatherTool(c *WeatherClient) tool.InvokableTool {
	return newWeatherTool(ToolGetCurrentWeather, "Get current weather for a place.", c.Current)
}

func createForecastWeatherTool(c *WeatherClient) tool.InvokableTool {
	return newWeatherTool(ToolGetForecastWeather,
		"Get forecast weather for a place (next 10 three-hour periods, metric units).",
		func(ctx context.Context, place string) (string, error) {
			return c.Forecast(ctx, place, forecastCount)
		},
	)
}
