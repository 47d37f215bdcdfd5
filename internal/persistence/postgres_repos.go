package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"

	"storydesk/internal/core"
)

// postgresStoryRepo implements StoryRepository for PostgreSQL
type postgresStoryRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresStoryRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresStoryRepo) Create(ctx context.Context, story *core.Story) error {
	query := `
		INSERT INTO stories (id, canonical_title, importance_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.query().ExecContext(ctx, query,
		story.ID, story.CanonicalTitle, story.ImportanceScore, story.CreatedAt, story.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

func (r *postgresStoryRepo) Get(ctx context.Context, id string) (*core.Story, error) {
	query := `
		SELECT id, canonical_title, importance_score, created_at, updated_at
		FROM stories WHERE id = $1
	`
	var s core.Story
	err := r.query().QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.CanonicalTitle, &s.ImportanceScore, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return &s, nil
}

func (r *postgresStoryRepo) RaiseImportance(ctx context.Context, id string, score int) error {
	query := `
		UPDATE stories
		SET importance_score = GREATEST(importance_score, $2),
		    updated_at = $3
		WHERE id = $1
	`
	result, err := r.query().ExecContext(ctx, query, id, core.ClampImportance(score), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update story importance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrStoryNotFound
	}
	return nil
}

// postgresArticleRepo implements ArticleRepository for PostgreSQL
type postgresArticleRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresArticleRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresArticleRepo) Create(ctx context.Context, a *core.Article) error {
	query := `
		INSERT INTO articles (
			id, story_id, url, fingerprint, source_name, title, summary,
			category, subcategory, tags, published_at, embedding, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::vector, $13)
	`

	var embedding interface{}
	if len(a.Embedding) > 0 {
		embedding = a.Embedding.Literal()
	}

	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.query().ExecContext(ctx, query,
		a.ID, a.StoryID, a.URL, a.Fingerprint, a.SourceName, a.Title, a.Summary,
		a.Category, a.Subcategory, pq.Array(tags), a.PublishedAt, embedding, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, a.URL)
		}
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

const postgresArticleColumns = `
	id, story_id, url, fingerprint, source_name, title, summary,
	category, subcategory, tags, published_at, created_at
`

func scanPostgresArticle(scan func(dest ...interface{}) error) (*core.Article, error) {
	var (
		a           core.Article
		publishedAt sql.NullTime
	)
	err := scan(&a.ID, &a.StoryID, &a.URL, &a.Fingerprint, &a.SourceName, &a.Title, &a.Summary,
		&a.Category, &a.Subcategory, pq.Array(&a.Tags), &publishedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		a.PublishedAt = &t
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}

func (r *postgresArticleRepo) Get(ctx context.Context, id string) (*core.Article, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+postgresArticleColumns+` FROM articles WHERE id = $1`, id)
	a, err := scanPostgresArticle(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return a, nil
}

func (r *postgresArticleRepo) ExistsFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := r.query().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM articles WHERE fingerprint = $1)`, fingerprint).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return exists, nil
}

func (r *postgresArticleRepo) ListByStory(ctx context.Context, storyID string) ([]core.Article, error) {
	rows, err := r.query().QueryContext(ctx,
		`SELECT `+postgresArticleColumns+` FROM articles WHERE story_id = $1 ORDER BY created_at, id`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list story articles: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		a, err := scanPostgresArticle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// postgresSelectionRepo implements SelectionRepository for PostgreSQL
type postgresSelectionRepo struct {
	db *sql.DB
}

func (r *postgresSelectionRepo) ListRepresentatives(ctx context.Context, f RepresentativeFilter) ([]core.SelectedArticle, error) {
	conditions := "s.importance_score >= $1"
	args := []interface{}{f.MinImportance}

	if len(f.Categories) > 0 {
		args = append(args, pq.Array(f.Categories))
		conditions += fmt.Sprintf(" AND a.category = ANY($%d)", len(args))
	}
	if len(f.Subcategories) > 0 {
		args = append(args, pq.Array(f.Subcategories))
		conditions += fmt.Sprintf(" AND a.subcategory = ANY($%d)", len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		conditions += fmt.Sprintf(" AND COALESCE(a.published_at, a.created_at) >= $%d", len(args))
	}

	limitClause := ""
	if f.Limit > 0 {
		args = append(args, f.Limit)
		limitClause = fmt.Sprintf("LIMIT $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT * FROM (
			SELECT DISTINCT ON (a.story_id)
				a.id, a.story_id, s.canonical_title, a.title, a.url, a.summary,
				a.source_name, a.category, a.subcategory, a.tags,
				s.importance_score, a.published_at
			FROM articles a
			INNER JOIN stories s ON a.story_id = s.id
			WHERE %s
			ORDER BY a.story_id, COALESCE(a.published_at, a.created_at) DESC, a.id DESC
		) reps
		ORDER BY importance_score DESC, story_id ASC
		%s
	`, conditions, limitClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list representatives: %w", err)
	}
	defer rows.Close()

	var out []core.SelectedArticle
	for rows.Next() {
		var (
			sa          core.SelectedArticle
			publishedAt sql.NullTime
		)
		if err := rows.Scan(&sa.ArticleID, &sa.StoryID, &sa.StoryTitle, &sa.Title, &sa.URL, &sa.Summary,
			&sa.SourceName, &sa.Category, &sa.Subcategory, pq.Array(&sa.Tags),
			&sa.ImportanceScore, &publishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan representative: %w", err)
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			sa.PublishedAt = &t
		}
		if sa.Tags == nil {
			sa.Tags = []string{}
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

func (r *postgresSelectionRepo) SubcategoryStats(ctx context.Context, since time.Time) ([]SubcategoryRow, error) {
	query := `
		SELECT
			a.category,
			a.subcategory,
			COUNT(*) AS article_count,
			AVG(s.importance_score)::float8 AS avg_importance,
			MAX(s.importance_score) AS max_importance,
			MAX(a.published_at) AS latest_article
		FROM articles a
		INNER JOIN stories s ON a.story_id = s.id
		WHERE a.published_at >= $1
		GROUP BY a.category, a.subcategory
		ORDER BY a.category, avg_importance DESC, article_count DESC
	`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query category stats: %w", err)
	}
	defer rows.Close()

	var out []SubcategoryRow
	for rows.Next() {
		var (
			row    SubcategoryRow
			latest sql.NullTime
		)
		if err := rows.Scan(&row.Category, &row.Subcategory, &row.ArticleCount,
			&row.AvgImportance, &row.MaxImportance, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan category stats: %w", err)
		}
		if latest.Valid {
			t := latest.Time
			row.LatestArticle = &t
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *postgresSelectionRepo) ArticleStats(ctx context.Context, recentSince time.Time) (*core.ArticleStats, error) {
	stats := &core.ArticleStats{ImportanceDistribution: map[int]int{}}

	var (
		avg            sql.NullFloat64
		oldest, newest sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT a.story_id),
			COUNT(DISTINCT a.category),
			AVG(s.importance_score)::float8,
			MIN(a.published_at),
			MAX(a.published_at)
		FROM articles a
		INNER JOIN stories s ON a.story_id = s.id
	`).Scan(&stats.TotalArticles, &stats.UniqueStories, &stats.CategoriesCount, &avg, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("failed to query article stats: %w", err)
	}
	applyOverview(stats, avg, oldest, newest)

	rows, err := r.db.QueryContext(ctx, `
		SELECT importance_score, COUNT(*) FROM stories
		GROUP BY importance_score ORDER BY importance_score
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query importance distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var score, count int
		if err := rows.Scan(&score, &count); err != nil {
			return nil, fmt.Errorf("failed to scan importance distribution: %w", err)
		}
		stats.ImportanceDistribution[score] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE published_at >= $1`, recentSince).Scan(&stats.RecentArticles24h)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent articles: %w", err)
	}

	return stats, nil
}

// applyOverview copies nullable aggregates into stats; an empty store averages to the default importance
func applyOverview(stats *core.ArticleStats, avg sql.NullFloat64, oldest, newest sql.NullTime) {
	stats.AvgImportanceScore = float64(core.DefaultImportance)
	if avg.Valid {
		stats.AvgImportanceScore = roundTo(avg.Float64, 2)
	}
	if oldest.Valid {
		t := oldest.Time
		stats.OldestArticle = &t
	}
	if newest.Valid {
		t := newest.Time
		stats.NewestArticle = &t
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
