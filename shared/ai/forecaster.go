package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storm-sync/shared/config"

	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model answers with no text
var ErrEmptyResponse = errors.New("empty response from model")

// Forecaster turns a prompt describing recent readings into a short forecast
type Forecaster struct {
	client *genai.Client
	model  string
}

func NewForecaster(cfg *config.Config) (*Forecaster, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.AI.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Forecaster{
		client: client,
		model:  cfg.AI.Model,
	}, nil
}

// Forecast sends prompt as a single user turn and returns the model's reply
func (f *Forecaster) Forecast(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := f.client.Models.GenerateContent(ctx, f.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate forecast: %w", err)
	}

	return cleanResponse(result.Text())
}

// cleanResponse trims whitespace and surrounding quotes the model sometimes adds
func cleanResponse(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "\"")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
