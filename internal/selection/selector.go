// Package selection picks importance-weighted, story-distinct articles for content generation.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"storydesk/internal/core"
	"storydesk/internal/logger"
	"storydesk/internal/persistence"
)

const (
	// Request defaults for callers that leave target or minimum importance unset
	DefaultSubcategoryTarget = 8
	DefaultCategoryTarget    = 15
	DefaultMinImportance     = 4

	DefaultTopStoriesLimit         = 10
	DefaultTopStoriesMinImportance = 7
	DefaultTopStoriesWindow        = 24 * time.Hour

	// oversample fetches this many times the target to tolerate downstream filtering
	oversample = 2
)

// Selector answers selection queries. It only reads from the store.
type Selector struct {
	repo persistence.SelectionRepository
	log  *slog.Logger
	now  func() time.Time
}

// NewSelector creates a selector over repo
func NewSelector(repo persistence.SelectionRepository) *Selector {
	return &Selector{repo: repo, log: logger.Get(), now: time.Now}
}

// SelectBySubcategories returns up to target representatives, one per story, from stories
// at or above minImportance whose representative is in one of subcategories.
func (s *Selector) SelectBySubcategories(ctx context.Context, subcategories []string, target, minImportance int) ([]core.SelectedArticle, error) {
	if len(subcategories) == 0 || target <= 0 {
		return []core.SelectedArticle{}, nil
	}

	reps, err := s.repo.ListRepresentatives(ctx, persistence.RepresentativeFilter{
		Subcategories: subcategories,
		MinImportance: minImportance,
		Limit:         target * oversample,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select by subcategories: %w", err)
	}

	out := takeDistinct(reps, target, nil)
	s.log.Debug("Selected by subcategories", "subcategories", len(subcategories), "target", target, "selected", len(out))
	return out, nil
}

// SelectByCategories spreads target evenly over categories; the first target%n categories
// get one extra slot. Within each category the subcategory filter, when non-empty, still applies.
func (s *Selector) SelectByCategories(ctx context.Context, categories, subcategories []string, target, minImportance int) ([]core.SelectedArticle, error) {
	if len(categories) == 0 || target <= 0 {
		return []core.SelectedArticle{}, nil
	}

	allotments := Allot(target, len(categories))
	seen := make(map[string]bool)
	var merged []core.SelectedArticle

	for i, category := range categories {
		allot := allotments[i]
		if allot == 0 {
			continue
		}

		reps, err := s.repo.ListRepresentatives(ctx, persistence.RepresentativeFilter{
			Categories:    []string{category},
			Subcategories: subcategories,
			MinImportance: minImportance,
			Limit:         allot * oversample,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to select category %s: %w", category, err)
		}

		picked := takeDistinct(reps, allot, seen)
		s.log.Debug("Selected category", "category", category, "allotment", allot, "selected", len(picked))
		merged = append(merged, picked...)
	}

	sortByImportance(merged)
	if len(merged) > target {
		merged = merged[:target]
	}
	if merged == nil {
		merged = []core.SelectedArticle{}
	}
	return merged, nil
}

// TopStories returns the most important recent stories. Zero arguments take the defaults:
// 10 stories, importance 7, published in the last 24 hours.
func (s *Selector) TopStories(ctx context.Context, limit, minImportance int, window time.Duration) ([]core.SelectedArticle, error) {
	if limit <= 0 {
		limit = DefaultTopStoriesLimit
	}
	if minImportance <= 0 {
		minImportance = DefaultTopStoriesMinImportance
	}
	if window <= 0 {
		window = DefaultTopStoriesWindow
	}
	since := s.now().Add(-window)

	reps, err := s.repo.ListRepresentatives(ctx, persistence.RepresentativeFilter{
		MinImportance: minImportance,
		Since:         &since,
		Limit:         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select top stories: %w", err)
	}
	return takeDistinct(reps, limit, nil), nil
}

// Allot splits target over n buckets: target/n each, plus one for the first target%n.
func Allot(target, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	if target <= 0 {
		return out
	}
	base, extra := target/n, target%n
	for i := range out {
		out[i] = base
		if i < extra {
			out[i]++
		}
	}
	return out
}

// takeDistinct sorts reps by importance and keeps the first limit whose story is not in seen.
// seen may be nil; when given it is updated.
func takeDistinct(reps []core.SelectedArticle, limit int, seen map[string]bool) []core.SelectedArticle {
	if seen == nil {
		seen = make(map[string]bool, len(reps))
	}
	sorted := make([]core.SelectedArticle, len(reps))
	copy(sorted, reps)
	sortByImportance(sorted)

	out := make([]core.SelectedArticle, 0, limit)
	for _, r := range sorted {
		if len(out) == limit {
			break
		}
		if seen[r.StoryID] {
			continue
		}
		seen[r.StoryID] = true
		out = append(out, r)
	}
	return out
}

func sortByImportance(articles []core.SelectedArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].ImportanceScore != articles[j].ImportanceScore {
			return articles[i].ImportanceScore > articles[j].ImportanceScore
		}
		return articles[i].StoryID < articles[j].StoryID
	})
}
