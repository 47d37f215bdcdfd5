package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient generates text with the Gemini API
type GeminiClient struct {
	modelName string
	opts      Options
	gClient   *genai.Client
}

// NewGeminiClient creates a Gemini-backed generator
func NewGeminiClient(ctx context.Context, apiKey string, opts Options) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or llm.gemini_api_key in config file")
	}

	modelName := opts.Model
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{modelName: modelName, opts: opts, gClient: gClient}, nil
}

// ModelName returns the model used for generation
func (c *GeminiClient) ModelName() string {
	return c.modelName
}

// GenerateText generates text from a prompt
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	var cfg *genai.GenerateContentConfig
	if c.opts.MaxTokens > 0 || c.opts.Temperature > 0 {
		cfg = &genai.GenerateContentConfig{}
		if c.opts.MaxTokens > 0 {
			cfg.MaxOutputTokens = c.opts.MaxTokens
		}
		if c.opts.Temperature > 0 {
			temp := c.opts.Temperature
			cfg.Temperature = &temp
		}
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from LLM")
	}
	return text, nil
}
