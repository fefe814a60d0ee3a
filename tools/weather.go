package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type WeatherInput struct {
	Location string `json:"location" jsonschema_description:"City or place name."`
}

var WeatherDefinition = ToolDefinition{
	Name:        "getCurrentWeather",
	Description: "Get the current weather for a location.",
	InputSchema: GenerateSchema[WeatherInput](),
	Function:    CurrentWeather,
}

// CurrentWeather is a canned demo tool; it never calls a weather service.
func CurrentWeather(_ context.Context, input json.RawMessage) (string, error) {
	in, err := decode[WeatherInput](input)
	if err != nil {
		return "", err
	}
	loc := strings.TrimSpace(in.Location)
	if loc == "" {
		return "", errors.New("location is required")
	}
	return fmt.Sprintf("%s: the weather is very nice!", loc), nil
}
