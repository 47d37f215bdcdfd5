package embedding_test

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"storydesk/internal/config"
	"storydesk/internal/core"
	"storydesk/internal/embedding"
	"storydesk/test/mocks"
)

func TestPrepareText(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		summary string
		want    string
	}{
		{"joins", "Title", "Summary", "Title Summary"},
		{"collapses whitespace", "  Big\tnews ", "\n more\n\n text ", "Big news more text"},
		{"empty summary", "Only title", "", "Only title"},
		{"blank", "   ", "\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := embedding.PrepareText(tt.title, tt.summary); got != tt.want {
				t.Errorf("PrepareText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrepareTextTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", embedding.MaxTextChars+50)
	got := embedding.PrepareText(long, "")
	if n := len([]rune(got)); n != embedding.MaxTextChars {
		t.Errorf("rune count = %d, want %d", n, embedding.MaxTextChars)
	}
	if !strings.HasSuffix(got, "é") {
		t.Error("truncation split a multi-byte rune")
	}
}

func TestEmbed(t *testing.T) {
	provider := &mocks.MockEmbeddingProvider{Dims: 8}
	gen := embedding.NewGenerator(provider, 8, time.Second)

	vec, err := gen.Embed(context.Background(), "Fed raises rates", "Quarter point hike")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 8 {
		t.Errorf("len = %d, want 8", len(vec))
	}
	if len(provider.Texts) != 1 || provider.Texts[0] != "Fed raises rates Quarter point hike" {
		t.Errorf("provider saw %q", provider.Texts)
	}

	again, _ := gen.Embed(context.Background(), "Fed raises rates", "Quarter  point hike")
	sim, err := embedding.CosineSimilarity(vec, again)
	if err != nil || sim < 0.9999 {
		t.Errorf("same text should embed identically, similarity = %v, err = %v", sim, err)
	}
}

func TestEmbedErrors(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		gen := embedding.NewGenerator(&mocks.MockEmbeddingProvider{}, 8, time.Second)
		if _, err := gen.Embed(context.Background(), " ", ""); !errors.Is(err, embedding.ErrEmptyText) {
			t.Errorf("error = %v, want ErrEmptyText", err)
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		gen := embedding.NewGenerator(&mocks.MockEmbeddingProvider{Dims: 4}, 768, time.Second)
		if _, err := gen.Embed(context.Background(), "title", ""); !errors.Is(err, embedding.ErrDimensionMismatch) {
			t.Errorf("error = %v, want ErrDimensionMismatch", err)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		provider := &mocks.MockEmbeddingProvider{
			EmbedTextsFunc: func(ctx context.Context, texts []string) ([]core.Vector, error) {
				return nil, mocks.ErrMock
			},
		}
		gen := embedding.NewGenerator(provider, 8, time.Second)
		if _, err := gen.Embed(context.Background(), "title", ""); !errors.Is(err, mocks.ErrMock) {
			t.Errorf("error = %v, want wrapped provider error", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		provider := &mocks.MockEmbeddingProvider{
			EmbedTextsFunc: func(ctx context.Context, texts []string) ([]core.Vector, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		gen := embedding.NewGenerator(provider, 8, 20*time.Millisecond)
		if _, err := gen.Embed(context.Background(), "title", ""); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want deadline exceeded", err)
		}
	})
}

func TestEmbedBatchKeepsSlots(t *testing.T) {
	provider := &mocks.MockEmbeddingProvider{
		Dims: 8,
		EmbedTextsFunc: func(ctx context.Context, texts []string) ([]core.Vector, error) {
			if texts[0] == "bad" {
				return nil, mocks.ErrMock
			}
			return []core.Vector{mocks.HashVector(texts[0], 8)}, nil
		},
	}
	gen := embedding.NewGenerator(provider, 8, time.Second)

	out := gen.EmbedBatch(context.Background(), []string{"first", "bad", "", "last"})
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	if out[0] == nil || out[3] == nil {
		t.Error("successful items should have vectors")
	}
	if out[1] != nil || out[2] != nil {
		t.Error("failed and empty items should be nil")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b core.Vector
		want float64
	}{
		{"identical", core.Vector{1, 2, 3}, core.Vector{1, 2, 3}, 1},
		{"orthogonal", core.Vector{1, 0}, core.Vector{0, 1}, 0},
		{"opposite", core.Vector{1, 1}, core.Vector{-1, -1}, -1},
		{"zero norm", core.Vector{0, 0}, core.Vector{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := embedding.CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := embedding.CosineSimilarity(core.Vector{1}, core.Vector{1, 2}); !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Errorf("mismatched lengths error = %v", err)
	}
}

func TestGeminiProviderLive(t *testing.T) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	provider, err := embedding.NewGeminiProvider(context.Background(), key, "", 768)
	if err != nil {
		t.Fatalf("NewGeminiProvider() error = %v", err)
	}
	gen := embedding.NewGenerator(provider, 768, 0)
	vec, err := gen.Embed(context.Background(), "Central bank holds rates", "Policy unchanged")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 768 {
		t.Errorf("len = %d", len(vec))
	}
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Embedding
		wantErr string
	}{
		{"unknown provider", config.Embedding{Provider: "word2vec"}, "unknown embedding provider"},
		{"gemini without key", config.Embedding{Provider: "gemini", Dimensions: 768}, "gemini API key is required"},
		{"cohere without key", config.Embedding{Provider: "cohere", Dimensions: 1024}, "cohere API key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := embedding.NewFromConfig(context.Background(), tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	gen, err := embedding.NewFromConfig(context.Background(), config.Embedding{
		Provider:   "cohere",
		Model:      "gemini-embedding-001",
		Dimensions: 1024,
		CohereKey:  "co-test",
	})
	if err != nil {
		t.Fatalf("NewFromConfig(cohere) error = %v", err)
	}
	if gen.ModelName() != embedding.DefaultCohereModel || gen.Dimensions() != 1024 {
		t.Errorf("got model %q dims %d", gen.ModelName(), gen.Dimensions())
	}
}
