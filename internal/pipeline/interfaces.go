package pipeline

import (
	"context"

	"storydesk/internal/core"
	"storydesk/internal/similarity"
)

// DuplicateGate rejects articles that are already stored
type DuplicateGate interface {
	// IsDuplicate reports whether the fingerprint is already stored
	IsDuplicate(ctx context.Context, fingerprint string) (bool, error)

	// Remember records a committed fingerprint in any pre-filter
	Remember(ctx context.Context, fingerprint string)
}

// Embedder turns an article into a vector
type Embedder interface {
	// Embed returns the vector for an article's title and summary
	Embed(ctx context.Context, title, summary string) (core.Vector, error)
}

// NeighborFinder finds stored articles similar to a vector
type NeighborFinder interface {
	// FindNeighbors never fails; a search error yields no neighbors
	FindNeighbors(ctx context.Context, vec core.Vector, category string) similarity.Neighbors
}

// Judge decides which story an article belongs to
type Judge interface {
	// Decide never fails; model errors produce a fallback decision
	Decide(ctx context.Context, article core.IncomingArticle, candidates []core.Candidate) core.Decision
}

// StoryWriter persists clustering decisions atomically
type StoryWriter interface {
	// CreateStory starts a new story with article as its first member
	CreateStory(ctx context.Context, article *core.Article, decision core.Decision) (*core.Story, error)

	// AppendArticle adds article to an existing story
	AppendArticle(ctx context.Context, article *core.Article, storyID string, decision core.Decision) error
}

// Archiver keeps a copy of accepted intake records (optional)
type Archiver interface {
	// ArchiveArticle stores the raw record under its fingerprint
	ArchiveArticle(ctx context.Context, fingerprint string, article core.IncomingArticle) error
}
