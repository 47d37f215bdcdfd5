package adjudicator

import (
	"context"
	"strings"
	"testing"
	"time"

	"storydesk/internal/core"
	"storydesk/test/mocks"
)

var techArticle = core.IncomingArticle{
	Title:        "Chipmaker unveils new AI accelerator",
	URL:          "https://example.com/chips",
	Summary:      "The accelerator targets data centers",
	SourceName:   "Example Wire",
	FeedCategory: "Technology",
}

var twoStories = []core.Candidate{
	{ArticleID: "a1", StoryID: "story-1", Title: "AI chip launch", Summary: "launch", Similarity: 0.93},
	{ArticleID: "a2", StoryID: "story-2", Title: "Other chip news", Summary: "other", Similarity: 0.88},
	{ArticleID: "a3", StoryID: "story-1", Title: "AI chip launch follow-up", Summary: "more", Similarity: 0.87},
}

func replying(reply string) *mocks.MockTextGenerator {
	return &mocks.MockTextGenerator{
		GenerateTextFunc: func(ctx context.Context, prompt string) (string, error) {
			return reply, nil
		},
	}
}

func TestDecideJoinExisting(t *testing.T) {
	gen := replying("```json\n" + `{
		"action": "join_existing",
		"story_id": "story-2",
		"reason": "same launch",
		"category": "Technology",
		"subcategory": "hardware & infrastructure",
		"tags": ["chips", "AI", "chips", " data centers ", "nvidia", "extra"],
		"importance_score": 8
	}` + "\n```")
	a := New(gen, nil, Options{StrictSubcategories: true})

	d := a.Decide(context.Background(), techArticle, twoStories)
	if d.Action != core.ActionJoinExisting || d.StoryID != "story-2" {
		t.Fatalf("decision = %+v", d)
	}
	if d.Subcategory != "Hardware & Infrastructure" {
		t.Errorf("Subcategory = %q, want canonical spelling", d.Subcategory)
	}
	if len(d.Tags) != 4 || d.Tags[0] != "chips" || d.Tags[2] != "data centers" {
		t.Errorf("Tags = %v", d.Tags)
	}
	if d.ImportanceScore != 8 || d.Fallback {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestDecideJoinWithoutStoryID(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		candidates []core.Candidate
		wantAction core.Action
		wantStory  string
	}{
		{
			name:       "missing id takes top candidate",
			reply:      `{"action": "join_existing", "story_id": null, "category": "Technology"}`,
			candidates: twoStories,
			wantAction: core.ActionJoinExisting,
			wantStory:  "story-1",
		},
		{
			name:       "unknown id takes top candidate",
			reply:      `{"action": "join_existing", "story_id": "made-up", "category": "Technology"}`,
			candidates: twoStories,
			wantAction: core.ActionJoinExisting,
			wantStory:  "story-1",
		},
		{
			name:       "legacy cluster_id is honored",
			reply:      `{"action": "join_existing", "cluster_id": "story-2", "category": "Technology"}`,
			candidates: twoStories,
			wantAction: core.ActionJoinExisting,
			wantStory:  "story-2",
		},
		{
			name:       "create_new clears id",
			reply:      `{"action": "create_new", "story_id": "story-1", "category": "Technology"}`,
			candidates: twoStories,
			wantAction: core.ActionCreateNew,
			wantStory:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(replying(tt.reply), nil, Options{}).Decide(context.Background(), techArticle, tt.candidates)
			if d.Action != tt.wantAction || d.StoryID != tt.wantStory {
				t.Errorf("got (%s, %q), want (%s, %q)", d.Action, d.StoryID, tt.wantAction, tt.wantStory)
			}
			if d.ImportanceScore != core.DefaultImportance {
				t.Errorf("absent importance should default to 5, got %d", d.ImportanceScore)
			}
		})
	}
}

func TestParseDecisionJoinWithoutCandidatesDowngrades(t *testing.T) {
	d, err := parseDecision(`{"action": "join_existing"}`, nil, nil, "Sports")
	if err != nil {
		t.Fatalf("parseDecision() error = %v", err)
	}
	if d.Action != core.ActionCreateNew || d.StoryID != "" {
		t.Errorf("decision = %+v, want create_new", d)
	}
	if d.Category != "Sports" {
		t.Errorf("empty category should fall back, got %q", d.Category)
	}
}

func TestParseDecisionImportance(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`15`, 10},
		{`-3`, 1},
		{`0`, 5},
		{`"7"`, 7},
		{`6.6`, 7},
		{`null`, 5},
	}
	for _, tt := range tests {
		d, err := parseDecision(`{"action": "create_new", "importance_score": `+tt.raw+`}`, nil, nil, "General")
		if err != nil {
			t.Fatalf("importance %s: %v", tt.raw, err)
		}
		if d.ImportanceScore != tt.want {
			t.Errorf("importance %s -> %d, want %d", tt.raw, d.ImportanceScore, tt.want)
		}
	}
}

func TestDecideFallback(t *testing.T) {
	article := core.IncomingArticle{Title: "Congress passes budget", URL: "https://example.com/budget"}

	tests := []struct {
		name       string
		gen        *mocks.MockTextGenerator
		wantReason string
	}{
		{
			name: "model error",
			gen: &mocks.MockTextGenerator{GenerateTextFunc: func(ctx context.Context, prompt string) (string, error) {
				return "", mocks.ErrMock
			}},
			wantReason: "mock failure",
		},
		{
			name:       "unparseable output",
			gen:        replying("I think these are the same story."),
			wantReason: "failed to parse",
		},
		{
			name:       "invalid action",
			gen:        replying(`{"action": "merge"}`),
			wantReason: "invalid action",
		},
		{
			name: "timeout",
			gen: &mocks.MockTextGenerator{GenerateTextFunc: func(ctx context.Context, prompt string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			}},
			wantReason: "timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.gen, nil, Options{Timeout: 20 * time.Millisecond})
			d := a.Decide(context.Background(), article, twoStories)

			if !d.Fallback || d.Action != core.ActionCreateNew || d.StoryID != "" {
				t.Fatalf("expected fallback create_new, got %+v", d)
			}
			if d.Category != "Politics" || d.Subcategory != "" || len(d.Tags) != 0 || d.ImportanceScore != 5 {
				t.Errorf("unexpected fallback fields %+v", d)
			}
			if !strings.Contains(d.Rationale, tt.wantReason) {
				t.Errorf("Rationale = %q, want containing %q", d.Rationale, tt.wantReason)
			}
		})
	}
}

func TestDecideZeroCandidates(t *testing.T) {
	gen := replying(`{"action": "join_existing", "story_id": "x", "category": "Sports", "subcategory": "Tennis", "tags": ["open"], "importance_score": 4}`)
	article := core.IncomingArticle{Title: "Final set drama", FeedCategory: "Sports"}

	d := New(gen, nil, Options{StrictSubcategories: true}).Decide(context.Background(), article, nil)
	if gen.Calls() != 1 {
		t.Errorf("model should still be called once, got %d", gen.Calls())
	}
	if !strings.Contains(gen.Prompts[0], "None found") {
		t.Error("prompt should state that no similar articles exist")
	}
	if d.Action != core.ActionCreateNew || d.StoryID != "" || d.Rationale != "no similar articles found" {
		t.Errorf("decision = %+v", d)
	}
	if d.Subcategory != "Tennis" || d.ImportanceScore != 4 {
		t.Errorf("model fields should be kept: %+v", d)
	}

	failing := &mocks.MockTextGenerator{GenerateTextFunc: func(ctx context.Context, prompt string) (string, error) {
		return "", mocks.ErrMock
	}}
	d = New(failing, nil, Options{}).Decide(context.Background(), article, nil)
	if !d.Fallback || !strings.HasPrefix(d.Rationale, "no similar articles found; ") {
		t.Errorf("fallback rationale = %q", d.Rationale)
	}
}

func TestSubcategoryEnforcement(t *testing.T) {
	reply := `{"action": "create_new", "category": "Technology", "subcategory": "Quantum Gossip"}`

	strict := New(replying(reply), nil, Options{StrictSubcategories: true}).Decide(context.Background(), techArticle, twoStories)
	if strict.Subcategory != "" {
		t.Errorf("strict mode kept %q", strict.Subcategory)
	}

	lenient := New(replying(reply), nil, Options{}).Decide(context.Background(), techArticle, twoStories)
	if lenient.Subcategory != "Quantum Gossip" {
		t.Errorf("lenient mode changed subcategory to %q", lenient.Subcategory)
	}
}

func TestPromptContents(t *testing.T) {
	gen := replying(`{"action": "create_new"}`)
	many := make([]core.Candidate, 0, 8)
	for i := 0; i < 8; i++ {
		many = append(many, core.Candidate{StoryID: "s", Title: "candidate", Similarity: 0.9})
	}
	New(gen, nil, Options{}).Decide(context.Background(), techArticle, many)

	prompt := gen.Prompts[0]
	for _, want := range []string{
		"Title: Chipmaker unveils new AI accelerator",
		"Feed Category: Technology",
		"Similarity: 0.900",
		"AI & Machine Learning",
		"importance_score",
		"Apple Announces New MacBook Pro",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "6. Title:") {
		t.Error("prompt should list at most 5 candidates")
	}
}

func TestCategoryFor(t *testing.T) {
	if got := CategoryFor(core.IncomingArticle{Title: "Stock market rallies", FeedCategory: " Sports "}); got != "Sports" {
		t.Errorf("feed category should win, got %q", got)
	}
	if got := CategoryFor(core.IncomingArticle{Title: "Stock market rallies"}); got != "Business" {
		t.Errorf("heuristic = %q, want Business", got)
	}
}
