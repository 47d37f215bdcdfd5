package mocks

import (
	"context"
	"fmt"
	"sync"

	"storydesk/internal/core"
	"storydesk/internal/vectorstore"
)

// MockTextGenerator provides a mock implementation of llm.TextGenerator
type MockTextGenerator struct {
	GenerateTextFunc func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	Prompts []string
}

func (m *MockTextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.GenerateTextFunc != nil {
		return m.GenerateTextFunc(ctx, prompt)
	}
	return `{"action": "create_new", "reason": "mock", "category": "General", "tags": ["mock"], "importance_score": 5}`, nil
}

// Calls returns how many prompts were sent
func (m *MockTextGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// MockEmbeddingProvider provides a mock implementation of embedding.Provider.
// Without EmbedTextsFunc it returns a deterministic vector derived from each text.
type MockEmbeddingProvider struct {
	EmbedTextsFunc func(ctx context.Context, texts []string) ([]core.Vector, error)
	Dims           int
	Model          string

	mu    sync.Mutex
	Texts []string
}

func (m *MockEmbeddingProvider) EmbedTexts(ctx context.Context, texts []string) ([]core.Vector, error) {
	m.mu.Lock()
	m.Texts = append(m.Texts, texts...)
	m.mu.Unlock()

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	out := make([]core.Vector, len(texts))
	for i, text := range texts {
		out[i] = HashVector(text, m.Dimensions())
	}
	return out, nil
}

func (m *MockEmbeddingProvider) ModelName() string {
	if m.Model == "" {
		return "mock-embedding"
	}
	return m.Model
}

func (m *MockEmbeddingProvider) Dimensions() int {
	if m.Dims == 0 {
		return 8
	}
	return m.Dims
}

// HashVector spreads the bytes of text over dims buckets. Equal texts give equal vectors.
func HashVector(text string, dims int) core.Vector {
	v := make(core.Vector, dims)
	for i := 0; i < len(text); i++ {
		v[i%dims] += float32(text[i])
	}
	if len(text) == 0 {
		v[0] = 1
	}
	return v
}

// MockVectorStore provides a mock implementation of vectorstore.VectorStore
type MockVectorStore struct {
	SearchFunc   func(ctx context.Context, query vectorstore.SearchQuery) ([]vectorstore.SearchResult, error)
	GetStatsFunc func(ctx context.Context) (*vectorstore.VectorStoreStats, error)

	mu      sync.Mutex
	Queries []vectorstore.SearchQuery
}

func (m *MockVectorStore) Search(ctx context.Context, query vectorstore.SearchQuery) ([]vectorstore.SearchResult, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockVectorStore) GetStats(ctx context.Context) (*vectorstore.VectorStoreStats, error) {
	if m.GetStatsFunc != nil {
		return m.GetStatsFunc(ctx)
	}
	return &vectorstore.VectorStoreStats{IndexType: "mock"}, nil
}

// MockFingerprintLookup provides a mock implementation of fingerprint.FingerprintLookup
// backed by an in-memory set
type MockFingerprintLookup struct {
	ExistsFingerprintFunc func(ctx context.Context, fp string) (bool, error)

	mu    sync.Mutex
	known map[string]bool
	Calls int
}

// Add marks fp as stored
func (m *MockFingerprintLookup) Add(fp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.known == nil {
		m.known = make(map[string]bool)
	}
	m.known[fp] = true
}

func (m *MockFingerprintLookup) ExistsFingerprint(ctx context.Context, fp string) (bool, error) {
	m.mu.Lock()
	m.Calls++
	known := m.known[fp]
	m.mu.Unlock()

	if m.ExistsFingerprintFunc != nil {
		return m.ExistsFingerprintFunc(ctx, fp)
	}
	return known, nil
}

// ErrMock is a generic failure for error-path tests
var ErrMock = fmt.Errorf("mock failure")
