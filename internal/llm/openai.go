package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient generates text with the Chat Completions API
type OpenAIClient struct {
	client *openai.Client
	model  openai.ChatModel
	opts   Options
}

// NewOpenAIClient creates an OpenAI-backed generator
func NewOpenAIClient(apiKey string, opts Options) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: &client, model: openai.ChatModel(model), opts: opts}
}

// ModelName returns the model used for generation
func (c *OpenAIClient) ModelName() string {
	return string(c.model)
}

// GenerateText generates text from a prompt
func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if c.opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.opts.MaxTokens))
	}
	if c.opts.Temperature > 0 {
		params.Temperature = openai.Float(float64(c.opts.Temperature))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}
