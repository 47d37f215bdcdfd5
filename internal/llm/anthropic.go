package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient generates text with the Claude Messages API
type AnthropicClient struct {
	client *anthropic.Client
	model  anthropic.Model
	opts   Options
}

// NewAnthropicClient creates a Claude-backed generator
func NewAnthropicClient(apiKey string, opts Options) *AnthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	model := opts.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &AnthropicClient{client: &client, model: anthropic.Model(model), opts: opts}
}

// ModelName returns the model used for generation
func (c *AnthropicClient) ModelName() string {
	return string(c.model)
}

// GenerateText generates text from a prompt
func (c *AnthropicClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(c.opts.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.opts.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.opts.Temperature))
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return "", fmt.Errorf("no response from anthropic")
	}
	return resp.Content[0].Text, nil
}
