package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
)

// PgVectorStore implements VectorStore using PostgreSQL with the pgvector extension.
// The articles table carries an HNSW vector_cosine_ops index on embedding.
type PgVectorStore struct {
	db *sql.DB
}

// NewPgVectorStore creates a new pgvector-based vector store
func NewPgVectorStore(db *sql.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

// Search finds articles similar to the query embedding using the cosine distance operator
func (p *PgVectorStore) Search(ctx context.Context, query SearchQuery) ([]SearchResult, error) {
	query = applyDefaults(query)

	rows, err := p.db.QueryContext(ctx, `
		SELECT
			a.id,
			a.story_id,
			a.title,
			a.summary,
			a.source_name,
			1 - (a.embedding <=> $1::vector) AS similarity,
			a.embedding <=> $1::vector AS distance
		FROM articles a
		WHERE a.embedding IS NOT NULL
		  AND 1 - (a.embedding <=> $1::vector) > $2
		ORDER BY a.embedding <=> $1::vector
		LIMIT $3
	`, query.Embedding.Literal(), query.SimilarityThreshold, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ArticleID, &r.StoryID, &r.Title, &r.Summary, &r.SourceName, &r.Similarity, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}

// GetStats returns statistics about the vector store
func (p *PgVectorStore) GetStats(ctx context.Context) (*VectorStoreStats, error) {
	var stats VectorStoreStats

	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(vector_dims(embedding)), 0)
		FROM articles
		WHERE embedding IS NOT NULL
	`).Scan(&stats.TotalEmbeddings, &stats.EmbeddingDimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to count embeddings: %w", err)
	}

	var indexDef sql.NullString
	err = p.db.QueryRowContext(ctx, `
		SELECT indexdef FROM pg_indexes
		WHERE tablename = 'articles' AND indexdef ILIKE '%embedding%'
		LIMIT 1
	`).Scan(&indexDef)
	switch {
	case err == sql.ErrNoRows:
		stats.IndexType = "none"
	case err != nil:
		return nil, fmt.Errorf("failed to inspect indexes: %w", err)
	default:
		stats.IndexType = indexTypeFromDef(indexDef.String)
	}

	return &stats, nil
}

func indexTypeFromDef(def string) string {
	for _, t := range []string{"hnsw", "ivfflat"} {
		if containsFold(def, t) {
			return t
		}
	}
	return "btree"
}
