package llm

import (
	"context"
	"log/slog"
	"time"

	"storydesk/internal/logger"
)

// LoggedGenerator wraps a TextGenerator with latency logging and, when enabled,
// raw response logging for prompt debugging.
type LoggedGenerator struct {
	next           TextGenerator
	provider       string
	model          string
	debugResponses bool
	log            *slog.Logger
}

// NewLoggedGenerator wraps next
func NewLoggedGenerator(next TextGenerator, provider, model string, debugResponses bool) *LoggedGenerator {
	return &LoggedGenerator{
		next:           next,
		provider:       provider,
		model:          model,
		debugResponses: debugResponses,
		log:            logger.Get(),
	}
}

// GenerateText delegates to the wrapped generator
func (g *LoggedGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	result, err := g.next.GenerateText(ctx, prompt)
	latency := time.Since(start)

	if err != nil {
		g.log.Warn("LLM generation failed",
			"provider", g.provider,
			"model", g.model,
			"latency_ms", latency.Milliseconds(),
			"error", err)
		return "", err
	}

	g.log.Debug("LLM generation completed",
		"provider", g.provider,
		"model", g.model,
		"latency_ms", latency.Milliseconds(),
		"prompt_chars", len(prompt),
		"response_chars", len(result))

	if g.debugResponses {
		g.log.Info("LLM raw response", "model", g.model, "response", result)
	}
	return result, nil
}
