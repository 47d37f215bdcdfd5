package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storydesk/internal/core"
)

// sqliteStoryRepo implements StoryRepository for SQLite
type sqliteStoryRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *sqliteStoryRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *sqliteStoryRepo) Create(ctx context.Context, story *core.Story) error {
	_, err := r.query().ExecContext(ctx, `
		INSERT INTO stories (id, canonical_title, importance_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, story.ID, story.CanonicalTitle, story.ImportanceScore, sqliteTime(story.CreatedAt), sqliteTime(story.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

func (r *sqliteStoryRepo) Get(ctx context.Context, id string) (*core.Story, error) {
	var (
		s                    core.Story
		createdAt, updatedAt string
	)
	err := r.query().QueryRowContext(ctx, `
		SELECT id, canonical_title, importance_score, created_at, updated_at
		FROM stories WHERE id = ?
	`, id).Scan(&s.ID, &s.CanonicalTitle, &s.ImportanceScore, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	if s.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sqliteStoryRepo) RaiseImportance(ctx context.Context, id string, score int) error {
	result, err := r.query().ExecContext(ctx, `
		UPDATE stories
		SET importance_score = MAX(importance_score, ?),
		    updated_at = ?
		WHERE id = ?
	`, core.ClampImportance(score), sqliteTime(time.Now()), id)
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

// sqliteArticleRepo implements ArticleRepository for SQLite
type sqliteArticleRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *sqliteArticleRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *sqliteArticleRepo) Create(ctx context.Context, a *core.Article) error {
	tags, err := encodeTags(a.Tags)
	if err != nil {
		return err
	}

	var embedding interface{}
	if len(a.Embedding) > 0 {
		embedding = a.Embedding.Bytes()
	}

	_, err = r.query().ExecContext(ctx, `
		INSERT INTO articles (
			id, story_id, url, fingerprint, source_name, title, summary,
			category, subcategory, tags, published_at, embedding, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.StoryID, a.URL, a.Fingerprint, a.SourceName, a.Title, a.Summary,
		a.Category, a.Subcategory, tags, sqliteNullTime(a.PublishedAt), embedding, sqliteTime(a.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, a.URL)
		}
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

const sqliteArticleColumns = `
	id, story_id, url, fingerprint, source_name, title, summary,
	category, subcategory, tags, published_at, created_at
`

func scanSQLiteArticle(scan func(dest ...interface{}) error) (*core.Article, error) {
	var (
		a           core.Article
		tags        string
		publishedAt sql.NullString
		createdAt   string
	)
	err := scan(&a.ID, &a.StoryID, &a.URL, &a.Fingerprint, &a.SourceName, &a.Title, &a.Summary,
		&a.Category, &a.Subcategory, &tags, &publishedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	if a.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	if a.PublishedAt, err = parseSQLiteNullTime(publishedAt); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *sqliteArticleRepo) Get(ctx context.Context, id string) (*core.Article, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+sqliteArticleColumns+` FROM articles WHERE id = ?`, id)
	a, err := scanSQLiteArticle(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return a, nil
}

func (r *sqliteArticleRepo) ExistsFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := r.query().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM articles WHERE fingerprint = ?)`, fingerprint).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return exists, nil
}

func (r *sqliteArticleRepo) ListByStory(ctx context.Context, storyID string) ([]core.Article, error) {
	rows, err := r.query().QueryContext(ctx,
		`SELECT `+sqliteArticleColumns+` FROM articles WHERE story_id = ? ORDER BY created_at, id`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list story articles: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		a, err := scanSQLiteArticle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// sqliteSelectionRepo implements SelectionRepository for SQLite
type sqliteSelectionRepo struct {
	db *sql.DB
}

func (r *sqliteSelectionRepo) ListRepresentatives(ctx context.Context, f RepresentativeFilter) ([]core.SelectedArticle, error) {
	conditions := "s.importance_score >= ?"
	args := []interface{}{f.MinImportance}

	if len(f.Categories) > 0 {
		conditions += " AND a.category IN (" + inPlaceholders(len(f.Categories)) + ")"
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}
	if len(f.Subcategories) > 0 {
		conditions += " AND a.subcategory IN (" + inPlaceholders(len(f.Subcategories)) + ")"
		for _, s := range f.Subcategories {
			args = append(args, s)
		}
	}
	if f.Since != nil {
		conditions += " AND COALESCE(a.published_at, a.created_at) >= ?"
		args = append(args, sqliteTime(*f.Since))
	}

	limitClause := ""
	if f.Limit > 0 {
		limitClause = "LIMIT ?"
		args = append(args, f.Limit)
	}

	query := fmt.Sprintf(`
		WITH ranked AS (
			SELECT
				a.id, a.story_id, s.canonical_title, a.title, a.url, a.summary,
				a.source_name, a.category, a.subcategory, a.tags,
				s.importance_score, a.published_at,
				ROW_NUMBER() OVER (
					PARTITION BY a.story_id
					ORDER BY COALESCE(a.published_at, a.created_at) DESC, a.id DESC
				) AS rn
			FROM articles a
			INNER JOIN stories s ON a.story_id = s.id
			WHERE %s
		)
		SELECT id, story_id, canonical_title, title, url, summary,
			source_name, category, subcategory, tags, importance_score, published_at
		FROM ranked
		WHERE rn = 1
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
			tags        string
			publishedAt sql.NullString
		)
		if err := rows.Scan(&sa.ArticleID, &sa.StoryID, &sa.StoryTitle, &sa.Title, &sa.URL, &sa.Summary,
			&sa.SourceName, &sa.Category, &sa.Subcategory, &tags,
			&sa.ImportanceScore, &publishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan representative: %w", err)
		}
		if sa.Tags, err = decodeTags(tags); err != nil {
			return nil, err
		}
		if sa.PublishedAt, err = parseSQLiteNullTime(publishedAt); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

func (r *sqliteSelectionRepo) SubcategoryStats(ctx context.Context, since time.Time) ([]SubcategoryRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			a.category,
			a.subcategory,
			COUNT(*) AS article_count,
			AVG(s.importance_score) AS avg_importance,
			MAX(s.importance_score) AS max_importance,
			MAX(a.published_at) AS latest_article
		FROM articles a
		INNER JOIN stories s ON a.story_id = s.id
		WHERE a.published_at >= ?
		GROUP BY a.category, a.subcategory
		ORDER BY a.category, avg_importance DESC, article_count DESC
	`, sqliteTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query category stats: %w", err)
	}
	defer rows.Close()

	var out []SubcategoryRow
	for rows.Next() {
		var (
			row    SubcategoryRow
			latest sql.NullString
		)
		if err := rows.Scan(&row.Category, &row.Subcategory, &row.ArticleCount,
			&row.AvgImportance, &row.MaxImportance, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan category stats: %w", err)
		}
		if row.LatestArticle, err = parseSQLiteNullTime(latest); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *sqliteSelectionRepo) ArticleStats(ctx context.Context, recentSince time.Time) (*core.ArticleStats, error) {
	stats := &core.ArticleStats{ImportanceDistribution: map[int]int{}}

	var (
		avg            sql.NullFloat64
		oldest, newest sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT a.story_id),
			COUNT(DISTINCT a.category),
			AVG(s.importance_score),
			MIN(a.published_at),
			MAX(a.published_at)
		FROM articles a
		INNER JOIN stories s ON a.story_id = s.id
	`).Scan(&stats.TotalArticles, &stats.UniqueStories, &stats.CategoriesCount, &avg, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("failed to query article stats: %w", err)
	}

	var oldestT, newestT sql.NullTime
	if t, err := parseSQLiteNullTime(oldest); err != nil {
		return nil, err
	} else if t != nil {
		oldestT = sql.NullTime{Time: *t, Valid: true}
	}
	if t, err := parseSQLiteNullTime(newest); err != nil {
		return nil, err
	} else if t != nil {
		newestT = sql.NullTime{Time: *t, Valid: true}
	}
	applyOverview(stats, avg, oldestT, newestT)

	dist, err := r.importanceDistribution(ctx)
	if err != nil {
		return nil, err
	}
	stats.ImportanceDistribution = dist

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE published_at >= ?`, sqliteTime(recentSince)).Scan(&stats.RecentArticles24h)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent articles: %w", err)
	}
	return stats, nil
}

func (r *sqliteSelectionRepo) importanceDistribution(ctx context.Context) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT importance_score, COUNT(*) FROM stories
		GROUP BY importance_score ORDER BY importance_score
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query importance distribution: %w", err)
	}
	defer rows.Close()

	dist := map[int]int{}
	for rows.Next() {
		var score, count int
		if err := rows.Scan(&score, &count); err != nil {
			return nil, fmt.Errorf("failed to scan importance distribution: %w", err)
		}
		dist[score] = count
	}
	return dist, rows.Err()
}
