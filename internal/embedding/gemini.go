package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"storydesk/internal/core"
)

const (
	// DefaultGeminiModel is the default Gemini embedding model
	DefaultGeminiModel = "gemini-embedding-001"
	// DefaultGeminiDimensions is the Matryoshka output size requested from Gemini
	DefaultGeminiDimensions = 768
)

// GeminiProvider embeds text with the Gemini embedding API
type GeminiProvider struct {
	client     *genai.Client
	model      string
	dimensions int32
}

// NewGeminiProvider creates a Gemini embedding provider
func NewGeminiProvider(ctx context.Context, apiKey, model string, dimensions int) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if dimensions <= 0 {
		dimensions = DefaultGeminiDimensions
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client, model: model, dimensions: int32(dimensions)}, nil
}

func (p *GeminiProvider) ModelName() string { return p.model }
func (p *GeminiProvider) Dimensions() int   { return int(p.dimensions) }

// EmbedTexts embeds texts as retrieval documents
func (p *GeminiProvider) EmbedTexts(ctx context.Context, texts []string) ([]core.Vector, error) {
	if len(texts) == 0 {
		return []core.Vector{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: text}},
			Role:  "user",
		}
	}

	dims := p.dimensions
	config := &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
		TaskType:             "RETRIEVAL_DOCUMENT",
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini embed error: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, errors.New("gemini embed returned an unexpected number of embeddings")
	}

	out := make([]core.Vector, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini embed returned no values for input %d", i)
		}
		out[i] = core.Vector(e.Values)
	}
	return out, nil
}
