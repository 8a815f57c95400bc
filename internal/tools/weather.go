package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const WeatherToolName = "get_weather"

const weatherSchema = `{
	"type": "object",
	"properties": {
		"latitude": {"type": "number", "description": "Latitude of the location"},
		"longitude": {"type": "number", "description": "Longitude of the location"}
	},
	"required": ["latitude", "longitude"],
	"additionalProperties": false
}`

// maxWeatherResponseBytes caps the forecast payload fed back to the model.
const maxWeatherResponseBytes = 64 << 10

// WeatherTool fetches the current forecast for a coordinate from the
// Open-Meteo API. Pure query, no turn context needed.
type WeatherTool struct {
	client  *http.Client
	baseURL string
}

func NewWeatherTool() *WeatherTool {
	return &WeatherTool{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://api.open-meteo.com/v1/forecast",
	}
}

// NewWeatherToolWithBaseURL is used by tests to point at a stub server.
func NewWeatherToolWithBaseURL(baseURL string) *WeatherTool {
	t := NewWeatherTool()
	t.baseURL = baseURL
	return t
}

func (t *WeatherTool) Name() string { return WeatherToolName }

func (t *WeatherTool) Description() string {
	return "Get the current weather and forecast for a location given its latitude and longitude."
}

func (t *WeatherTool) Schema() json.RawMessage { return json.RawMessage(weatherSchema) }

func (t *WeatherTool) Kind() Kind { return KindPureQuery }

func (t *WeatherTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	var args struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	url := fmt.Sprintf("%s?latitude=%f&longitude=%f&current=temperature_2m&hourly=temperature_2m&daily=sunrise,sunset&timezone=auto",
		t.baseURL, args.Latitude, args.Longitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorResult(fmt.Sprintf("weather service returned status %d", resp.StatusCode)), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWeatherResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response: %w", err)
	}

	return &Result{Content: string(body)}, nil
}
