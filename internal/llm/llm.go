// Package llm provides the text-generation backends used to adjudicate clustering.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storydesk/internal/config"
)

const (
	// DefaultGeminiModel is the default Gemini model used for adjudication.
	DefaultGeminiModel = "gemini-flash-lite-latest"
	// DefaultAnthropicModel is used when llm.provider is anthropic and no model is set.
	DefaultAnthropicModel = "claude-haiku-4-5"
	// DefaultOpenAIModel is used when llm.provider is openai and no model is set.
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultMaxTokens bounds the size of a clustering decision.
	DefaultMaxTokens = 1024
)

// TextGenerator turns a prompt into model output
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Options holds per-client generation settings
type Options struct {
	Model       string
	MaxTokens   int32
	Temperature float32
}

// New builds the configured backend, wrapped with request logging.
func New(ctx context.Context, cfg config.LLM) (TextGenerator, error) {
	opts := Options{Model: cfg.Model, MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}

	var (
		gen   TextGenerator
		model string
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		var c *GeminiClient
		c, err = NewGeminiClient(ctx, cfg.GeminiKey, opts)
		if c != nil {
			gen, model = c, c.ModelName()
		}
	case "anthropic":
		c := NewAnthropicClient(cfg.AnthropicKey, opts)
		gen, model = c, c.ModelName()
	case "openai":
		c := NewOpenAIClient(cfg.OpenAIKey, opts)
		gen, model = c, c.ModelName()
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewLoggedGenerator(gen, cfg.Provider, model, cfg.DebugResponses), nil
}

// CleanJSONResponse strips Markdown code fences and surrounding prose from a model reply,
// leaving the outermost JSON object.
func CleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

// WithTimeout runs a single generation under its own deadline.
func WithTimeout(ctx context.Context, gen TextGenerator, timeout time.Duration, prompt string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return gen.GenerateText(ctx, prompt)
}
