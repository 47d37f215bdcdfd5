package categorization

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHeuristic(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Apple unveils new iPhone", "Technology"},
		{"Big Tech faces new scrutiny", "Technology"},
		{"Technology stocks rally", "Technology"},
		{"Congress passes spending bill", "Politics"},
		{"Markets tumble as economy slows", "Business"},
		{"New vaccine shows promise", "Health"},
		{"Officials said rain will continue", "General"},
		{"", "General"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := Heuristic(tt.title); got != tt.want {
				t.Errorf("Heuristic(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestDefaultTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()

	if got := len(tax.CategoryNames()); got != 9 {
		t.Fatalf("expected 9 categories, got %d", got)
	}
	if subs := tax.Subcategories("technology"); len(subs) == 0 {
		t.Error("expected Technology subcategories for case-insensitive lookup")
	}
	if subs := tax.Subcategories("Politics"); subs != nil {
		t.Errorf("expected no vocabulary for unknown category, got %v", subs)
	}

	if got := tax.FeedCategory("https://sports.yahoo.com/nba/news/rss/"); got != "Sports" {
		t.Errorf("FeedCategory(nba) = %q, want Sports", got)
	}
	if got := tax.FeedCategory("https://example.com/feed"); got != DefaultCategory {
		t.Errorf("FeedCategory(unknown) = %q, want %q", got, DefaultCategory)
	}

	seen := make(map[string]bool)
	for _, f := range tax.Feeds() {
		if seen[f.URL] {
			t.Errorf("feed %s returned twice", f.URL)
		}
		seen[f.URL] = true
	}
}

func TestMatchSubcategory(t *testing.T) {
	tax := DefaultTaxonomy()

	got, ok := tax.MatchSubcategory("Technology", "ai & machine learning")
	if !ok || got != "AI & Machine Learning" {
		t.Errorf("MatchSubcategory = (%q, %v), want canonical spelling", got, ok)
	}
	if _, ok := tax.MatchSubcategory("Technology", "Quantum Gardening"); ok {
		t.Error("expected unknown subcategory to be rejected")
	}
	if _, ok := tax.MatchSubcategory("Technology", ""); ok {
		t.Error("expected empty subcategory to be rejected")
	}
}

func TestLoadTaxonomy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	body := `
categories:
  - name: Space
    subcategories: [Launches, Missions]
    feeds:
      - https://example.com/space.xml
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("LoadTaxonomy() error = %v", err)
	}
	if got := tax.FeedCategory("https://example.com/space.xml"); got != "Space" {
		t.Errorf("FeedCategory = %q, want Space", got)
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("categories: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTaxonomy(empty); err == nil {
		t.Error("expected error for taxonomy without categories")
	}

	if tax, err := LoadTaxonomy(""); err != nil || len(tax.Categories) != 9 {
		t.Errorf("LoadTaxonomy(\"\") should return the default taxonomy, got %v", err)
	}
}

func TestFewShotExamples(t *testing.T) {
	if !strings.Contains(FewShotExamples("Sports"), "Tiger Woods") {
		t.Error("expected sports examples")
	}
	if FewShotExamples("Lifestyle") != genericExamples {
		t.Error("expected generic examples for categories without their own")
	}
}
