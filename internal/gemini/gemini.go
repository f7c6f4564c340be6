// Package gemini adapts the Google Gemini API to the text-generation interface
// used by the recommender and the assistant.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("gemini returned no text")

// Generator calls GenerateContent on a single model.
type Generator struct {
	client *genai.Client
	model  string
}

// NewClient creates the shared API client. It is constructed once at start-up
// and handed to every Generator. An empty baseURL uses the public endpoint.
func NewClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

func NewGenerator(client *genai.Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate sends prompt as a single user turn and returns the response text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini %s: %w", g.model, ErrEmptyResponse)
	}
	return text, nil
}

// Model reports the model identifier used by this generator.
func (g *Generator) Model() string {
	return g.model
}
