package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"storydesk/internal/core"
	"storydesk/internal/logger"
)

// Persister writes clustering decisions. Each operation commits story and article
// together or not at all.
type Persister struct {
	db  Database
	log *slog.Logger
	now func() time.Time
}

// NewPersister creates a persister over db
func NewPersister(db Database) *Persister {
	return &Persister{
		db:  db,
		log: logger.Get(),
		now: time.Now,
	}
}

// CreateStory starts a new story with article as its first member
func (p *Persister) CreateStory(ctx context.Context, article *core.Article, decision core.Decision) (*core.Story, error) {
	now := p.now().UTC()
	story := &core.Story{
		ID:              uuid.NewString(),
		CanonicalTitle:  strings.TrimSpace(article.Title),
		ImportanceScore: core.ClampImportance(decision.ImportanceScore),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	prepareArticle(article, story.ID, decision, now)

	err := p.inTx(ctx, func(tx Transaction) error {
		if err := tx.Stories().Create(ctx, story); err != nil {
			return err
		}
		return tx.Articles().Create(ctx, article)
	})
	if err != nil {
		return nil, err
	}

	p.log.Debug("Created story", "story_id", story.ID, "article_id", article.ID, "importance", story.ImportanceScore)
	return story, nil
}

// AppendArticle adds article to an existing story and raises the story's importance
// to the decision's score when that is higher. Returns ErrStoryNotFound when storyID is unknown.
func (p *Persister) AppendArticle(ctx context.Context, article *core.Article, storyID string, decision core.Decision) error {
	now := p.now().UTC()
	prepareArticle(article, storyID, decision, now)

	err := p.inTx(ctx, func(tx Transaction) error {
		// The update doubles as the existence check and takes the row lock before the insert
		if err := tx.Stories().RaiseImportance(ctx, storyID, decision.ImportanceScore); err != nil {
			return err
		}
		return tx.Articles().Create(ctx, article)
	})
	if err != nil {
		return err
	}

	p.log.Debug("Appended article", "story_id", storyID, "article_id", article.ID)
	return nil
}

func (p *Persister) inTx(ctx context.Context, fn func(tx Transaction) error) error {
	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			p.log.Warn("Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// prepareArticle fills the fields the decision and the store own
func prepareArticle(article *core.Article, storyID string, decision core.Decision, now time.Time) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	article.StoryID = storyID
	article.Category = decision.Category
	if article.Category == "" {
		article.Category = "General"
	}
	article.Subcategory = decision.Subcategory
	article.Tags = decision.Tags
	if article.Tags == nil {
		article.Tags = []string{}
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
}
