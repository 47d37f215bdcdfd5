// Package pipeline runs incoming articles through dedup, embedding, similarity search,
// adjudication and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"storydesk/internal/adjudicator"
	"storydesk/internal/core"
	"storydesk/internal/fingerprint"
	"storydesk/internal/logger"
	"storydesk/internal/persistence"
)

// Pipeline orchestrates ingestion of one article or a batch
type Pipeline struct {
	gate     DuplicateGate
	embedder Embedder
	finder   NeighborFinder
	judge    Judge
	writer   StoryWriter
	archiver Archiver // Optional

	config *Config
	log    *slog.Logger
}

// Config holds pipeline configuration
type Config struct {
	// Concurrency bounds ProcessBatch workers
	Concurrency int
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{Concurrency: 4}
}

// NewPipeline creates a pipeline from its stages
func NewPipeline(
	gate DuplicateGate,
	embedder Embedder,
	finder NeighborFinder,
	judge Judge,
	writer StoryWriter,
	config *Config,
) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Pipeline{
		gate:     gate,
		embedder: embedder,
		finder:   finder,
		judge:    judge,
		writer:   writer,
		config:   config,
		log:      logger.Get(),
	}
}

// WithArchiver enables archiving of accepted intake records
func (p *Pipeline) WithArchiver(a Archiver) *Pipeline {
	p.archiver = a
	return p
}

// Process ingests one article. It always returns a result; failures are reported
// through Status and Err.
func (p *Pipeline) Process(ctx context.Context, in core.IncomingArticle) core.IngestResult {
	start := time.Now()
	result := core.IngestResult{URL: in.URL}

	fail := func(stage string, err error) core.IngestResult {
		result.Status = core.StatusError
		result.Err = fmt.Errorf("%s: %w", stage, err)
		result.Error = result.Err.Error()
		p.log.Warn("Ingestion failed", "url", in.URL, "stage", stage, "error", err)
		return result
	}

	if strings.TrimSpace(in.Title) == "" {
		return fail("validate", errors.New("article title is required"))
	}

	fp, err := fingerprint.Compute(in.URL)
	if err != nil {
		return fail("fingerprint", err)
	}

	dup, err := p.gate.IsDuplicate(ctx, fp)
	if err != nil {
		return fail("dedup", err)
	}
	if dup {
		result.Status = core.StatusDuplicate
		p.log.Debug("Skipping duplicate article", "url", in.URL)
		return result
	}

	vec, err := p.embedder.Embed(ctx, in.Title, in.Summary)
	if err != nil {
		return fail("embedding", err)
	}

	category := adjudicator.CategoryFor(in)
	neighbors := p.finder.FindNeighbors(ctx, vec, category)
	decision := p.judge.Decide(ctx, in, neighbors.Candidates)

	article := &core.Article{
		URL:         strings.TrimSpace(in.URL),
		Fingerprint: fp,
		SourceName:  in.SourceName,
		Title:       strings.TrimSpace(in.Title),
		Summary:     strings.TrimSpace(in.Summary),
		PublishedAt: in.PublishedAt,
		Embedding:   vec,
	}

	status, storyID, err := p.persist(ctx, article, decision)
	switch {
	case errors.Is(err, persistence.ErrDuplicate):
		result.Status = core.StatusDuplicate
		p.gate.Remember(ctx, fp)
		p.log.Info("Duplicate detected at commit", "url", in.URL)
		return result
	case err != nil:
		return fail("persist", err)
	}

	p.gate.Remember(ctx, fp)
	if p.archiver != nil {
		if err := p.archiver.ArchiveArticle(ctx, fp, in); err != nil {
			p.log.Warn("Failed to archive article", "url", in.URL, "error", err)
		}
	}

	result.Status = status
	result.ArticleID = article.ID
	result.StoryID = storyID
	p.log.Info("Ingested article",
		"url", in.URL,
		"status", status,
		"story_id", storyID,
		"action", decision.Action,
		"candidates", len(neighbors.Candidates),
		"fallback", decision.Fallback,
		"duration_ms", time.Since(start).Milliseconds())
	return result
}

func (p *Pipeline) persist(ctx context.Context, article *core.Article, decision core.Decision) (core.IngestStatus, string, error) {
	if decision.Action == core.ActionJoinExisting && decision.StoryID != "" {
		err := p.writer.AppendArticle(ctx, article, decision.StoryID, decision)
		if err == nil {
			return core.StatusAppended, decision.StoryID, nil
		}
		if !errors.Is(err, persistence.ErrStoryNotFound) {
			return "", "", err
		}
		p.log.Warn("Target story disappeared, starting a new one", "url", article.URL, "story_id", decision.StoryID)
		article.ID = ""
	}

	story, err := p.writer.CreateStory(ctx, article, decision)
	if err != nil {
		return "", "", err
	}
	return core.StatusNew, story.ID, nil
}

// ProcessBatch ingests articles with up to Concurrency workers. Per-article failures
// never abort the batch; results keep the input order.
func (p *Pipeline) ProcessBatch(ctx context.Context, articles []core.IncomingArticle) core.BatchSummary {
	results := make([]core.IngestResult, len(articles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for i, in := range articles {
		g.Go(func() error {
			results[i] = p.Process(gctx, in)
			return nil
		})
	}
	_ = g.Wait()

	var summary core.BatchSummary
	for _, r := range results {
		summary.Add(r)
	}
	p.log.Info("Batch ingested",
		"processed", summary.Processed,
		"new", summary.New,
		"appended", summary.Appended,
		"duplicates", summary.Duplicates,
		"errors", summary.Errors)
	return summary
}
