package vectorstore

import (
	"context"

	"storydesk/internal/core"
)

// VectorStore provides nearest-neighbor search over stored article embeddings
type VectorStore interface {
	// Search finds articles whose cosine similarity to the query embedding is
	// strictly greater than the threshold, ordered by similarity (highest first)
	Search(ctx context.Context, query SearchQuery) ([]SearchResult, error)

	// GetStats returns statistics about the stored embeddings
	GetStats(ctx context.Context) (*VectorStoreStats, error)
}

// SearchQuery configures semantic search parameters
type SearchQuery struct {
	// Embedding is the query vector
	Embedding core.Vector

	// Limit is the maximum number of results to return (default: 10)
	Limit int

	// SimilarityThreshold is the exclusive lower bound on cosine similarity (default: 0.85)
	SimilarityThreshold float64
}

// SearchResult is a stored article similar to the query
type SearchResult struct {
	ArticleID  string
	StoryID    string
	Title      string
	Summary    string
	SourceName string

	// Similarity is the cosine similarity (higher = more similar)
	Similarity float64

	// Distance is the raw cosine distance; Similarity = 1 - Distance
	Distance float64
}

// VectorStoreStats provides metrics about the vector store
type VectorStoreStats struct {
	TotalEmbeddings     int64
	EmbeddingDimensions int
	IndexType           string
}

const (
	defaultLimit     = 10
	defaultThreshold = 0.85
)

func applyDefaults(q SearchQuery) SearchQuery {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.SimilarityThreshold == 0 {
		q.SimilarityThreshold = defaultThreshold
	}
	return q
}
