// Package embedding turns article text into dense vectors for similarity search.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"storydesk/internal/core"
	"storydesk/internal/logger"
)

// MaxTextChars caps the text sent to the provider, measured in runes
const MaxTextChars = 8192

// DefaultTimeout bounds a single provider call
const DefaultTimeout = 20 * time.Second

var (
	// ErrEmptyText is returned when title and summary are both blank
	ErrEmptyText = errors.New("embedding: empty text")
	// ErrDimensionMismatch is returned when vector lengths disagree
	ErrDimensionMismatch = errors.New("embedding: dimension mismatch")
)

// Provider is an embedding backend. Implementations return one vector per input text.
type Provider interface {
	EmbedTexts(ctx context.Context, texts []string) ([]core.Vector, error)
	ModelName() string
	Dimensions() int
}

// Generator prepares article text, calls the provider under a timeout, and checks dimensions
type Generator struct {
	provider   Provider
	dimensions int
	timeout    time.Duration
	log        *slog.Logger
}

// NewGenerator creates a generator that expects vectors of the given dimension
func NewGenerator(provider Provider, dimensions int, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if dimensions <= 0 {
		dimensions = provider.Dimensions()
	}
	return &Generator{
		provider:   provider,
		dimensions: dimensions,
		timeout:    timeout,
		log:        logger.Get(),
	}
}

// Dimensions returns the vector length the generator enforces
func (g *Generator) Dimensions() int {
	return g.dimensions
}

// ModelName returns the provider's model
func (g *Generator) ModelName() string {
	return g.provider.ModelName()
}

// PrepareText joins title and summary, collapses whitespace, and truncates on a rune boundary
func PrepareText(title, summary string) string {
	text := strings.Join(strings.Fields(title+" "+summary), " ")
	if utf8.RuneCountInString(text) <= MaxTextChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxTextChars])
}

// Embed returns the vector for an article's title and summary
func (g *Generator) Embed(ctx context.Context, title, summary string) (core.Vector, error) {
	return g.embedText(ctx, PrepareText(title, summary))
}

func (g *Generator) embedText(ctx context.Context, text string) (core.Vector, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	vectors, err := g.provider.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	if len(vectors[0]) != g.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vectors[0]), g.dimensions)
	}
	return vectors[0], nil
}

// EmbedBatch embeds each text independently. A failed item is nil in the output;
// the output always has the same length as texts.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) []core.Vector {
	out := make([]core.Vector, len(texts))
	for i, text := range texts {
		text = PrepareText(text, "")
		vec, err := g.embedText(ctx, text)
		if err != nil {
			g.log.Warn("Failed to embed batch item", "index", i, "error", err)
			continue
		}
		out[i] = vec
	}
	return out
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// It returns 0 when either vector has zero norm.
func CosineSimilarity(a, b core.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// float rounding can push parallel vectors just past 1
	return math.Max(-1, math.Min(1, sim)), nil
}
