package selection

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"storydesk/internal/core"
	"storydesk/internal/persistence"
)

// DefaultCatalogWindow is how far back Categories looks when no window is given
const DefaultCatalogWindow = 7 * 24 * time.Hour

// Catalog reports what the store holds, for choosing selection inputs
type Catalog struct {
	repo persistence.SelectionRepository
	now  func() time.Time
}

// NewCatalog creates a catalog over repo
func NewCatalog(repo persistence.SelectionRepository) *Catalog {
	return &Catalog{repo: repo, now: time.Now}
}

// Categories groups recent subcategory activity by category, most important category first
func (c *Catalog) Categories(ctx context.Context, window time.Duration) ([]core.CategoryStats, error) {
	if window <= 0 {
		window = DefaultCatalogWindow
	}

	rows, err := c.repo.SubcategoryStats(ctx, c.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to load category stats: %w", err)
	}

	index := make(map[string]int)
	var (
		categories []core.CategoryStats
		weighted   []float64 // sum of avg*count per category
	)
	for _, row := range rows {
		i, ok := index[row.Category]
		if !ok {
			i = len(categories)
			index[row.Category] = i
			categories = append(categories, core.CategoryStats{Category: row.Category, Subcategories: []core.SubcategoryStats{}})
			weighted = append(weighted, 0)
		}

		cat := &categories[i]
		cat.Subcategories = append(cat.Subcategories, core.SubcategoryStats{
			Subcategory:   row.Subcategory,
			ArticleCount:  row.ArticleCount,
			AvgImportance: round1(row.AvgImportance),
			MaxImportance: row.MaxImportance,
			LatestArticle: row.LatestArticle,
		})
		cat.TotalArticles += row.ArticleCount
		if row.MaxImportance > cat.MaxImportance {
			cat.MaxImportance = row.MaxImportance
		}
		weighted[i] += row.AvgImportance * float64(row.ArticleCount)
	}

	for i := range categories {
		if categories[i].TotalArticles > 0 {
			categories[i].AvgImportance = round1(weighted[i] / float64(categories[i].TotalArticles))
		}
	}

	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].AvgImportance != categories[j].AvgImportance {
			return categories[i].AvgImportance > categories[j].AvgImportance
		}
		return categories[i].Category < categories[j].Category
	})
	if categories == nil {
		categories = []core.CategoryStats{}
	}
	return categories, nil
}

// Stats returns an overview of the store, counting articles published in the last 24 hours as recent
func (c *Catalog) Stats(ctx context.Context) (*core.ArticleStats, error) {
	stats, err := c.repo.ArticleStats(ctx, c.now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load article stats: %w", err)
	}
	return stats, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
