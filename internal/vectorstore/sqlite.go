package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"storydesk/internal/core"
	"storydesk/internal/embedding"
)

// SQLiteStore implements VectorStore over an embedded SQLite database.
// Embeddings are little-endian float32 BLOBs and are scanned brute-force.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a brute-force vector store over the articles table
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Search scores every stored embedding and keeps the best matches above the threshold
func (s *SQLiteStore) Search(ctx context.Context, query SearchQuery) ([]SearchResult, error) {
	query = applyDefaults(query)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, story_id, title, summary, source_name, embedding
		FROM articles
		WHERE embedding IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r    SearchResult
			blob []byte
		)
		if err := rows.Scan(&r.ArticleID, &r.StoryID, &r.Title, &r.Summary, &r.SourceName, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		vec, err := core.VectorFromBytes(blob)
		if err != nil {
			return nil, fmt.Errorf("article %s: %w", r.ArticleID, err)
		}
		sim, err := embedding.CosineSimilarity(query.Embedding, vec)
		if err != nil {
			// vectors from a different model generation are not comparable
			continue
		}
		if sim <= query.SimilarityThreshold {
			continue
		}
		r.Similarity = sim
		r.Distance = 1 - sim
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ArticleID < results[j].ArticleID
	})
	if len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// GetStats returns statistics about the vector store
func (s *SQLiteStore) GetStats(ctx context.Context) (*VectorStoreStats, error) {
	var stats VectorStoreStats
	var maxBytes sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(LENGTH(embedding))
		FROM articles
		WHERE embedding IS NOT NULL
	`).Scan(&stats.TotalEmbeddings, &maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to count embeddings: %w", err)
	}
	stats.EmbeddingDimensions = int(maxBytes.Int64 / 4)
	stats.IndexType = "bruteforce"
	return &stats, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
