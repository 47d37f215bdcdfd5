// Package similarity finds previously stored articles close to a new embedding.
package similarity

import (
	"context"
	"log/slog"
	"sort"

	"storydesk/internal/config"
	"storydesk/internal/core"
	"storydesk/internal/logger"
	"storydesk/internal/vectorstore"
)

const (
	DefaultThreshold = 0.85
	DefaultLimit     = 10
)

// Neighbors are the candidates for one article and the distinct stories they belong to
type Neighbors struct {
	Candidates []core.Candidate
	StoryIDs   []string // first-seen order, so StoryIDs[0] is the best match's story
}

// Searcher runs thresholded nearest-neighbor queries with per-category overrides
type Searcher struct {
	store vectorstore.VectorStore
	cfg   config.Similarity
	log   *slog.Logger
}

// NewSearcher creates a searcher over store. Zero threshold or limit fall back to the defaults.
func NewSearcher(store vectorstore.VectorStore, cfg config.Similarity) *Searcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &Searcher{store: store, cfg: cfg, log: logger.Get()}
}

// FindNeighbors returns stored articles whose similarity to vec is strictly above the
// category's threshold, best first and capped at its limit. A store failure is logged
// and yields no neighbors, so the article starts a new story.
func (s *Searcher) FindNeighbors(ctx context.Context, vec core.Vector, category string) Neighbors {
	threshold, limit := s.cfg.ThresholdFor(category)

	results, err := s.store.Search(ctx, vectorstore.SearchQuery{
		Embedding:           vec,
		Limit:               limit,
		SimilarityThreshold: threshold,
	})
	if err != nil {
		s.log.Warn("Similarity search failed, treating article as new", "category", category, "error", err)
		return Neighbors{}
	}

	candidates := make([]core.Candidate, 0, len(results))
	for _, r := range results {
		if r.Similarity <= threshold {
			continue
		}
		candidates = append(candidates, core.Candidate{
			ArticleID:  r.ArticleID,
			Title:      r.Title,
			Summary:    r.Summary,
			StoryID:    r.StoryID,
			SourceName: r.SourceName,
			Similarity: r.Similarity,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	n := Neighbors{Candidates: candidates}
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.StoryID == "" || seen[c.StoryID] {
			continue
		}
		seen[c.StoryID] = true
		n.StoryIDs = append(n.StoryIDs, c.StoryID)
	}

	s.log.Debug("Similarity search complete",
		"category", category, "threshold", threshold, "candidates", len(n.Candidates), "stories", len(n.StoryIDs))
	return n
}
