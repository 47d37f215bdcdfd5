// Package adjudicator asks a language model whether a new article joins an existing
// story, and falls back to heuristics whenever the model cannot be trusted.
package adjudicator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storydesk/internal/categorization"
	"storydesk/internal/core"
	"storydesk/internal/llm"
	"storydesk/internal/logger"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxCandidates = 5

	reasonNoCandidates = "no similar articles found"
)

// Options tune the adjudicator
type Options struct {
	Timeout             time.Duration
	StrictSubcategories bool
	MaxCandidates       int
}

// Adjudicator decides the story an article belongs to
type Adjudicator struct {
	llm      llm.TextGenerator
	taxonomy *categorization.Taxonomy
	opts     Options
	log      *slog.Logger
}

// New creates an adjudicator. A nil taxonomy uses the built-in one.
func New(gen llm.TextGenerator, taxonomy *categorization.Taxonomy, opts Options) *Adjudicator {
	if taxonomy == nil {
		taxonomy = categorization.DefaultTaxonomy()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	return &Adjudicator{
		llm:      gen,
		taxonomy: taxonomy,
		opts:     opts,
		log:      logger.Get(),
	}
}

// CategoryFor returns the feed category when known, otherwise the keyword heuristic
func CategoryFor(article core.IncomingArticle) string {
	if c := strings.TrimSpace(article.FeedCategory); c != "" {
		return c
	}
	return categorization.Heuristic(article.Title)
}

// Fallback is the decision used when the model fails: a new story with heuristic
// category, no subcategory or tags, and default importance.
func Fallback(article core.IncomingArticle, reason string) core.Decision {
	return core.Decision{
		Action:          core.ActionCreateNew,
		Category:        categorization.Heuristic(article.Title),
		Tags:            []string{},
		ImportanceScore: core.DefaultImportance,
		Rationale:       reason,
		Fallback:        true,
	}
}

// Decide returns the clustering decision for article given its candidates (best first).
// It never fails; model errors produce a Fallback decision.
func (a *Adjudicator) Decide(ctx context.Context, article core.IncomingArticle, candidates []core.Candidate) core.Decision {
	category := CategoryFor(article)

	shown := candidates
	if len(shown) > a.opts.MaxCandidates {
		shown = shown[:a.opts.MaxCandidates]
	}
	storyIDs := distinctStories(shown)

	prompt := buildPrompt(article, category, a.taxonomy.Subcategories(category), shown)

	decision, err := a.ask(ctx, prompt, shown, storyIDs, category)
	if err != nil {
		reason := "AI judge error: " + err.Error()
		if len(shown) == 0 {
			reason = reasonNoCandidates + "; " + err.Error()
		}
		a.log.Warn("Adjudication failed, using fallback",
			"url", article.URL, "error", err)
		return Fallback(article, reason)
	}

	if len(shown) == 0 {
		decision.Action = core.ActionCreateNew
		decision.StoryID = ""
		decision.Rationale = reasonNoCandidates
	}

	a.enforceSubcategory(&decision, article)

	a.log.Debug("Adjudicated article",
		"url", article.URL,
		"action", decision.Action,
		"story_id", decision.StoryID,
		"category", decision.Category,
		"subcategory", decision.Subcategory)
	return decision
}

func (a *Adjudicator) ask(ctx context.Context, prompt string, candidates []core.Candidate, storyIDs []string, category string) (core.Decision, error) {
	if a.llm == nil {
		return core.Decision{}, fmt.Errorf("no language model configured")
	}

	response, err := llm.WithTimeout(ctx, a.llm, a.opts.Timeout, prompt)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return core.Decision{}, fmt.Errorf("timeout after %s", a.opts.Timeout)
		}
		return core.Decision{}, err
	}

	decision, err := parseDecision(response, candidates, storyIDs, category)
	if err != nil {
		return core.Decision{}, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return decision, nil
}

// enforceSubcategory snaps the subcategory to the vocabulary spelling, or clears it in strict mode
func (a *Adjudicator) enforceSubcategory(d *core.Decision, article core.IncomingArticle) {
	if d.Subcategory == "" {
		return
	}
	if canonical, ok := a.taxonomy.MatchSubcategory(d.Category, d.Subcategory); ok {
		d.Subcategory = canonical
		return
	}
	if !a.opts.StrictSubcategories {
		return
	}
	a.log.Warn("Subcategory not in vocabulary, clearing",
		"url", article.URL, "category", d.Category, "subcategory", d.Subcategory)
	d.Subcategory = ""
}

func distinctStories(candidates []core.Candidate) []string {
	var ids []string
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.StoryID == "" || seen[c.StoryID] {
			continue
		}
		seen[c.StoryID] = true
		ids = append(ids, c.StoryID)
	}
	return ids
}
