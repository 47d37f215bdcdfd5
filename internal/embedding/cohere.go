package embedding

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"storydesk/internal/core"
)

const (
	// DefaultCohereModel is the default Cohere embedding model
	DefaultCohereModel = "embed-english-v3.0"
	// DefaultCohereDimensions is the output size of the v3 English model
	DefaultCohereDimensions = 1024
)

// CohereProvider embeds text with the Cohere Embed API (v2)
type CohereProvider struct {
	client     *cohereclient.Client
	model      string
	dimensions int
}

// NewCohereProvider creates a Cohere embedding provider
func NewCohereProvider(apiKey, model string, dimensions int) (*CohereProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("cohere API key is required. Set COHERE_API_KEY environment variable")
	}
	if model == "" {
		model = DefaultCohereModel
	}
	if dimensions <= 0 {
		dimensions = DefaultCohereDimensions
	}

	// Cohere's HTTP/2 endpoint intermittently resets streams; force HTTP/1.1
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)

	return &CohereProvider{client: client, model: model, dimensions: dimensions}, nil
}

func (p *CohereProvider) ModelName() string { return p.model }
func (p *CohereProvider) Dimensions() int   { return p.dimensions }

// EmbedTexts embeds texts with the search_document input type
func (p *CohereProvider) EmbedTexts(ctx context.Context, texts []string) ([]core.Vector, error) {
	if len(texts) == 0 {
		return []core.Vector{}, nil
	}

	resp, err := p.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          p.model,
		InputType:      cohere.EmbedInputTypeSearchDocument,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	out := make([]core.Vector, len(floats))
	for i, vec := range floats {
		fv := make(core.Vector, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}
