// Package persistence stores stories and articles and answers the selection queries
package persistence

import (
	"context"
	"database/sql"
	"time"

	"storydesk/internal/core"
)

// Supported SQL dialects
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// StoryRepository handles story persistence operations
type StoryRepository interface {
	// Create inserts a new story
	Create(ctx context.Context, story *core.Story) error

	// Get retrieves a story by ID, or ErrStoryNotFound
	Get(ctx context.Context, id string) (*core.Story, error)

	// RaiseImportance sets importance to max(current, score) and bumps updated_at.
	// Returns ErrStoryNotFound when the story does not exist.
	RaiseImportance(ctx context.Context, id string, score int) error
}

// ArticleRepository handles article persistence operations
type ArticleRepository interface {
	// Create inserts a new article. A URL or fingerprint collision returns ErrDuplicate.
	Create(ctx context.Context, article *core.Article) error

	// Get retrieves an article by ID
	Get(ctx context.Context, id string) (*core.Article, error)

	// ExistsFingerprint reports whether an article with this fingerprint is stored
	ExistsFingerprint(ctx context.Context, fingerprint string) (bool, error)

	// ListByStory retrieves a story's articles, oldest first
	ListByStory(ctx context.Context, storyID string) ([]core.Article, error)
}

// RepresentativeFilter narrows a representative listing.
// Empty slices mean "no restriction".
type RepresentativeFilter struct {
	Categories    []string
	Subcategories []string
	MinImportance int
	Since         *time.Time // compared against COALESCE(published_at, created_at)
	Limit         int        // 0 means unlimited
}

// SubcategoryRow is one (category, subcategory) aggregate over a window
type SubcategoryRow struct {
	Category      string
	Subcategory   string
	ArticleCount  int
	AvgImportance float64
	MaxImportance int
	LatestArticle *time.Time
}

// SelectionRepository answers read-only selection and catalog queries
type SelectionRepository interface {
	// ListRepresentatives returns one article per story: the most recent by published_at,
	// falling back to created_at, with the article ID as tiebreak. Results are ordered by
	// story importance descending then story ID ascending.
	ListRepresentatives(ctx context.Context, filter RepresentativeFilter) ([]core.SelectedArticle, error)

	// SubcategoryStats aggregates articles published since the cutoff
	SubcategoryStats(ctx context.Context, since time.Time) ([]SubcategoryRow, error)

	// ArticleStats returns an overview of the whole store
	ArticleStats(ctx context.Context, recentSince time.Time) (*core.ArticleStats, error)
}

// Database represents the main database interface that aggregates all repositories
type Database interface {
	// Stories returns the story repository
	Stories() StoryRepository

	// Articles returns the article repository
	Articles() ArticleRepository

	// Selection returns the read-only selection repository
	Selection() SelectionRepository

	// SQL exposes the connection pool for vector search and migrations
	SQL() *sql.DB

	// Dialect names the SQL flavor, DialectPostgres or DialectSQLite
	Dialect() string

	// Close closes the database connection
	Close() error

	// Ping verifies the database connection
	Ping(ctx context.Context) error

	// BeginTx starts a new transaction
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Stories returns the story repository within this transaction
	Stories() StoryRepository

	// Articles returns the article repository within this transaction
	Articles() ArticleRepository
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
