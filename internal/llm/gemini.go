package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator calls the Gemini API through google.golang.org/genai.
type GeminiGenerator struct {
	models      contentGenerator
	model       string
	temperature *float32
}

// NewGeminiGenerator creates a Gemini client authenticated with apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, temperature float64) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiGenerator(client.Models, model, temperature), nil
}

func newGeminiGenerator(models contentGenerator, model string, temperature float64) *GeminiGenerator {
	if model == "" {
		model = defaultGeminiModel
	}
	g := &GeminiGenerator{models: models, model: model}
	if temperature > 0 {
		t := float32(temperature)
		g.temperature = &t
	}
	return g
}

// Name returns "gemini:<model>".
func (g *GeminiGenerator) Name() string { return "gemini:" + g.model }

// Generate runs a single-turn GenerateContent call.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxOutputTokens),
		Temperature:     g.temperature,
	})
	if err != nil {
		return "", geminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", malformed("gemini", "no candidates in response")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", malformed("gemini", "empty response text")
	}
	return text, nil
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &BackendError{
			Kind:       KindFromStatus(apiErr.Code),
			Provider:   "gemini",
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	return fromContext("gemini", err)
}
