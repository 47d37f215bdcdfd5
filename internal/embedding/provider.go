package embedding

import (
	"context"
	"fmt"
	"strings"

	"storydesk/internal/config"
)

// NewFromConfig builds the configured provider and wraps it in a Generator
func NewFromConfig(ctx context.Context, cfg config.Embedding) (*Generator, error) {
	var (
		provider Provider
		err      error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		provider, err = NewGeminiProvider(ctx, cfg.GeminiKey, cfg.Model, cfg.Dimensions)
	case "cohere":
		model := cfg.Model
		if !strings.HasPrefix(model, "embed-") {
			model = DefaultCohereModel
		}
		provider, err = NewCohereProvider(cfg.CohereKey, model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewGenerator(provider, cfg.Dimensions, cfg.Timeout), nil
}
