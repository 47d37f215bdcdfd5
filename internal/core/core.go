package core

import (
	"strings"
	"time"
)

// Vector is a dense embedding produced by an embedding model.
type Vector []float32

// IncomingArticle is the clean record handed over by feed ingestion.
type IncomingArticle struct {
	Title        string     `json:"title"`         // Headline as published
	URL          string     `json:"url"`           // Canonical source URL
	Summary      string     `json:"summary"`       // Feed-provided summary or description
	SourceName   string     `json:"source_name"`   // Publisher name (e.g., "BBC News")
	FeedCategory string     `json:"feed_category"` // Category of the feed the article came from, may be empty
	PublishedAt  *time.Time `json:"published_date,omitempty"`
}

// Article is a stored member of exactly one story.
type Article struct {
	ID          string     `json:"article_id"`
	StoryID     string     `json:"story_id"`
	URL         string     `json:"url"`
	Fingerprint string     `json:"fingerprint"`
	SourceName  string     `json:"source_name"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	Tags        []string   `json:"tags"`
	PublishedAt *time.Time `json:"publication_timestamp,omitempty"`
	Embedding   Vector     `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Story is a cluster of articles describing the same real-world event.
type Story struct {
	ID              string    `json:"story_id"`
	CanonicalTitle  string    `json:"canonical_title"` // Title of the first member article
	ImportanceScore int       `json:"importance_score"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Importance bounds for stories.
const (
	MinImportance     = 1
	MaxImportance     = 10
	DefaultImportance = 5
)

// ClampImportance forces a score into [MinImportance, MaxImportance].
// Zero is treated as "not assessed" and maps to DefaultImportance.
func ClampImportance(score int) int {
	switch {
	case score == 0:
		return DefaultImportance
	case score < MinImportance:
		return MinImportance
	case score > MaxImportance:
		return MaxImportance
	}
	return score
}

// Candidate is a previously stored article similar to the one being ingested.
type Candidate struct {
	ArticleID  string  `json:"article_id"`
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	StoryID    string  `json:"story_id"`
	SourceName string  `json:"source_name"`
	Similarity float64 `json:"similarity"`
}

// Action is the clustering verdict for a new article.
type Action string

const (
	ActionJoinExisting Action = "join_existing"
	ActionCreateNew    Action = "create_new"
)

// Valid reports whether the action is one of the known verdicts.
func (a Action) Valid() bool {
	return a == ActionJoinExisting || a == ActionCreateNew
}

// Decision is the validated outcome of adjudication.
type Decision struct {
	Action          Action   `json:"action"`
	StoryID         string   `json:"story_id,omitempty"`
	Category        string   `json:"category"`
	Subcategory     string   `json:"subcategory,omitempty"`
	Tags            []string `json:"tags"`
	ImportanceScore int      `json:"importance_score"`
	Rationale       string   `json:"reason"`
	Fallback        bool     `json:"fallback"` // Produced by heuristics rather than the model
}

// IngestStatus describes what happened to one incoming article.
type IngestStatus string

const (
	StatusNew       IngestStatus = "new"
	StatusAppended  IngestStatus = "appended"
	StatusDuplicate IngestStatus = "duplicate"
	StatusError     IngestStatus = "error"
)

// IngestResult is the per-article outcome of the ingestion pipeline.
type IngestResult struct {
	URL       string       `json:"url"`
	Status    IngestStatus `json:"status"`
	ArticleID string       `json:"article_id,omitempty"`
	StoryID   string       `json:"story_id,omitempty"`
	Err       error        `json:"-"`
	Error     string       `json:"error,omitempty"`
}

// BatchSummary counts outcomes of a batch ingestion.
type BatchSummary struct {
	Processed  int            `json:"processed"`
	New        int            `json:"new"`
	Appended   int            `json:"appended"`
	Duplicates int            `json:"duplicates"`
	Errors     int            `json:"errors"`
	Results    []IngestResult `json:"results,omitempty"`
}

// Add records one result in the summary.
func (s *BatchSummary) Add(r IngestResult) {
	s.Processed++
	switch r.Status {
	case StatusNew:
		s.New++
	case StatusAppended:
		s.Appended++
	case StatusDuplicate:
		s.Duplicates++
	default:
		s.Errors++
	}
	s.Results = append(s.Results, r)
}

// SelectedArticle is one representative article of a story chosen for content generation.
type SelectedArticle struct {
	ArticleID       string     `json:"article_id"`
	StoryID         string     `json:"story_id"`
	StoryTitle      string     `json:"story_title"`
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	Summary         string     `json:"summary"`
	SourceName      string     `json:"source_name"`
	Category        string     `json:"category"`
	Subcategory     string     `json:"subcategory"`
	Tags            []string   `json:"tags"`
	ImportanceScore int        `json:"importance_score"`
	PublishedAt     *time.Time `json:"publication_timestamp,omitempty"`
}

// SubcategoryStats summarizes recent activity in one subcategory.
type SubcategoryStats struct {
	Subcategory   string     `json:"subcategory"`
	ArticleCount  int        `json:"article_count"`
	AvgImportance float64    `json:"avg_importance"`
	MaxImportance int        `json:"max_importance"`
	LatestArticle *time.Time `json:"latest_article,omitempty"`
}

// CategoryStats groups subcategory statistics under a category.
type CategoryStats struct {
	Category      string             `json:"category"`
	Subcategories []SubcategoryStats `json:"subcategories"`
	TotalArticles int                `json:"total_articles"`
	AvgImportance float64            `json:"avg_importance"`
	MaxImportance int                `json:"max_importance"`
}

// ArticleStats is an overview of the whole store.
type ArticleStats struct {
	TotalArticles          int         `json:"total_articles"`
	UniqueStories          int         `json:"unique_stories"`
	CategoriesCount        int         `json:"categories_count"`
	AvgImportanceScore     float64     `json:"avg_importance_score"`
	OldestArticle          *time.Time  `json:"oldest_article,omitempty"`
	NewestArticle          *time.Time  `json:"newest_article,omitempty"`
	ImportanceDistribution map[int]int `json:"importance_distribution"`
	RecentArticles24h      int         `json:"recent_articles_24h"`
}

// NormalizeTags trims, drops empties and case-insensitive repeats, and caps the list at max.
func NormalizeTags(tags []string, max int) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
