package persistence

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"storydesk/internal/core"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := NewMigrationManager(db, 4).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func newArticle(url, title string, published time.Time) *core.Article {
	return &core.Article{
		URL:         url,
		Fingerprint: fingerprintFor(url),
		SourceName:  "Wire",
		Title:       title,
		Summary:     title + " summary",
		PublishedAt: &published,
		Embedding:   core.Vector{1, 0, 0, 0},
	}
}

// fingerprintFor pads a URL into a unique 64-char key; real hashing is tested elsewhere
func fingerprintFor(url string) string {
	fp := url
	for len(fp) < 64 {
		fp += "0"
	}
	return fp[:64]
}

func decision(category, sub string, importance int, tags ...string) core.Decision {
	return core.Decision{
		Action:          core.ActionCreateNew,
		Category:        category,
		Subcategory:     sub,
		Tags:            tags,
		ImportanceScore: importance,
	}
}

func TestMigrationStatusAndRollback(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	mm := NewMigrationManager(db, 4)

	status, err := mm.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(status) == 0 || !status[0].Applied || status[0].Version != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	// Running again is a no-op
	if err := mm.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	if err := mm.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if _, err := db.SQL().ExecContext(ctx, `SELECT 1 FROM stories`); err == nil {
		t.Error("stories table should be dropped after rollback")
	}
	if err := mm.Rollback(ctx); !errors.Is(err, ErrNoMigrations) {
		t.Errorf("Rollback() on empty = %v, want ErrNoMigrations", err)
	}
}

func TestRebindQuestion(t *testing.T) {
	got := rebindQuestion("SELECT * FROM t WHERE a = $1 AND b = $12 AND c = '$x'")
	want := "SELECT * FROM t WHERE a = ? AND b = ? AND c = '$x'"
	if got != want {
		t.Errorf("rebindQuestion() = %q, want %q", got, want)
	}
}

func TestSplitMigration(t *testing.T) {
	up, down := splitMigration("CREATE TABLE x (id INT);\n-- migrate:down\nDROP TABLE x;\n")
	if up != "CREATE TABLE x (id INT);\n" {
		t.Errorf("up = %q", up)
	}
	if down != "\nDROP TABLE x;\n" {
		t.Errorf("down = %q", down)
	}
}

func TestPersisterCreateStory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	p := NewPersister(db)

	article := newArticle("https://a.example/1", "Chip export rules", time.Now().Add(-time.Hour))
	story, err := p.CreateStory(ctx, article, decision("Technology", "Semiconductors", 14, "chips", "trade"))
	if err != nil {
		t.Fatalf("CreateStory() error = %v", err)
	}

	if story.CanonicalTitle != "Chip export rules" {
		t.Errorf("CanonicalTitle = %q", story.CanonicalTitle)
	}
	if story.ImportanceScore != 10 {
		t.Errorf("ImportanceScore = %d, want clamped 10", story.ImportanceScore)
	}

	stored, err := db.Stories().Get(ctx, story.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.ImportanceScore != 10 {
		t.Errorf("stored importance = %d", stored.ImportanceScore)
	}

	got, err := db.Articles().Get(ctx, article.ID)
	if err != nil {
		t.Fatalf("Articles().Get() error = %v", err)
	}
	if got.StoryID != story.ID || got.Category != "Technology" || got.Subcategory != "Semiconductors" {
		t.Errorf("unexpected article %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "chips" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(article.PublishedAt.UTC()) {
		t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, article.PublishedAt)
	}

	exists, err := db.Articles().ExistsFingerprint(ctx, article.Fingerprint)
	if err != nil || !exists {
		t.Errorf("ExistsFingerprint() = %v, %v", exists, err)
	}
	exists, err = db.Articles().ExistsFingerprint(ctx, fingerprintFor("https://other"))
	if err != nil || exists {
		t.Errorf("ExistsFingerprint(unknown) = %v, %v", exists, err)
	}
}

func TestPersisterDuplicateRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	p := NewPersister(db)

	first := newArticle("https://a.example/dup", "First", time.Now())
	if _, err := p.CreateStory(ctx, first, decision("World News", "", 5)); err != nil {
		t.Fatalf("CreateStory() error = %v", err)
	}

	again := newArticle("https://a.example/dup", "Again", time.Now())
	_, err := p.CreateStory(ctx, again, decision("World News", "", 5))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("CreateStory(duplicate) error = %v, want ErrDuplicate", err)
	}

	var stories int
	if err := db.SQL().QueryRowContext(ctx, `SELECT COUNT(*) FROM stories`).Scan(&stories); err != nil {
		t.Fatal(err)
	}
	if stories != 1 {
		t.Errorf("stories = %d, want 1 (the failed story must roll back)", stories)
	}
}

func TestPersisterAppendArticle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	p := NewPersister(db)

	story, err := p.CreateStory(ctx, newArticle("https://a.example/1", "Storm hits coast", time.Now()), decision("World News", "", 4))
	if err != nil {
		t.Fatalf("CreateStory() error = %v", err)
	}

	second := newArticle("https://b.example/1", "Coastal storm", time.Now())
	if err := p.AppendArticle(ctx, second, story.ID, decision("World News", "", 7)); err != nil {
		t.Fatalf("AppendArticle() error = %v", err)
	}
	third := newArticle("https://c.example/1", "Storm aftermath", time.Now())
	if err := p.AppendArticle(ctx, third, story.ID, decision("World News", "", 3)); err != nil {
		t.Fatalf("AppendArticle() error = %v", err)
	}

	stored, err := db.Stories().Get(ctx, story.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ImportanceScore != 7 {
		t.Errorf("importance = %d, want max(4,7,3) = 7", stored.ImportanceScore)
	}
	if stored.CanonicalTitle != "Storm hits coast" {
		t.Errorf("canonical title changed to %q", stored.CanonicalTitle)
	}

	members, err := db.Articles().ListByStory(ctx, story.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 3 {
		t.Errorf("members = %d, want 3", len(members))
	}

	orphan := newArticle("https://d.example/1", "Orphan", time.Now())
	err = p.AppendArticle(ctx, orphan, "00000000-0000-0000-0000-000000000000", decision("World News", "", 5))
	if !errors.Is(err, ErrStoryNotFound) {
		t.Errorf("AppendArticle(unknown story) error = %v, want ErrStoryNotFound", err)
	}
	if _, err := db.Articles().Get(ctx, orphan.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("orphan article should not be stored, got %v", err)
	}
}

func TestListRepresentativesOnePerStory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	p := NewPersister(db)
	base := time.Now().Add(-2 * time.Hour)

	// Story A (importance 8) with three articles, story B (6) with two, story C (9) with three
	a, _ := p.CreateStory(ctx, newArticle("https://x/a1", "A1", base), decision("Technology", "AI", 8))
	_ = p.AppendArticle(ctx, newArticle("https://x/a2", "A2", base.Add(10*time.Minute)), a.ID, decision("Technology", "AI", 8))
	_ = p.AppendArticle(ctx, newArticle("https://x/a3", "A3", base.Add(5*time.Minute)), a.ID, decision("Technology", "AI", 8))
	b, _ := p.CreateStory(ctx, newArticle("https://x/b1", "B1", base), decision("Technology", "AI", 6))
	_ = p.AppendArticle(ctx, newArticle("https://x/b2", "B2", base.Add(time.Minute)), b.ID, decision("Technology", "AI", 6))
	c, _ := p.CreateStory(ctx, newArticle("https://x/c1", "C1", base), decision("Technology", "AI", 9))
	_ = p.AppendArticle(ctx, newArticle("https://x/c2", "C2", base.Add(time.Minute)), c.ID, decision("Technology", "AI", 9))
	_ = p.AppendArticle(ctx, newArticle("https://x/c3", "C3", base.Add(2*time.Minute)), c.ID, decision("Technology", "AI", 9))

	reps, err := db.Selection().ListRepresentatives(ctx, RepresentativeFilter{
		Subcategories: []string{"AI"},
		MinImportance: 1,
	})
	if err != nil {
		t.Fatalf("ListRepresentatives() error = %v", err)
	}
	if len(reps) != 3 {
		t.Fatalf("got %d representatives, want 3", len(reps))
	}

	wantTitles := []string{"C3", "A2", "B2"}
	for i, want := range wantTitles {
		if reps[i].Title != want {
			t.Errorf("reps[%d].Title = %q, want %q", i, reps[i].Title, want)
		}
	}

	reps, err = db.Selection().ListRepresentatives(ctx, RepresentativeFilter{
		Subcategories: []string{"AI"},
		MinImportance: 7,
		Limit:         1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(reps) != 1 || reps[0].StoryID != c.ID {
		t.Errorf("filtered reps = %+v", reps)
	}
}

func TestSelectionStats(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	p := NewPersister(db)
	now := time.Now()

	_, _ = p.CreateStory(ctx, newArticle("https://x/1", "One", now.Add(-time.Hour)), decision("Technology", "AI", 8))
	_, _ = p.CreateStory(ctx, newArticle("https://x/2", "Two", now.Add(-2*time.Hour)), decision("Technology", "Gadgets", 4))
	_, _ = p.CreateStory(ctx, newArticle("https://x/3", "Three", now.Add(-72*time.Hour)), decision("Sports", "Soccer", 6))

	rows, err := db.Selection().SubcategoryStats(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("SubcategoryStats() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].Category != "Sports" || rows[1].Subcategory != "AI" {
		t.Errorf("unexpected ordering %+v", rows)
	}

	stats, err := db.Selection().ArticleStats(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ArticleStats() error = %v", err)
	}
	if stats.TotalArticles != 3 || stats.UniqueStories != 3 || stats.CategoriesCount != 2 {
		t.Errorf("unexpected totals %+v", stats)
	}
	if stats.AvgImportanceScore != 6 {
		t.Errorf("AvgImportanceScore = %v, want 6", stats.AvgImportanceScore)
	}
	if stats.RecentArticles24h != 2 {
		t.Errorf("RecentArticles24h = %d, want 2", stats.RecentArticles24h)
	}
	if stats.ImportanceDistribution[8] != 1 || stats.ImportanceDistribution[4] != 1 {
		t.Errorf("ImportanceDistribution = %v", stats.ImportanceDistribution)
	}
}

func TestArticleStatsEmpty(t *testing.T) {
	db := newTestDB(t)
	stats, err := db.Selection().ArticleStats(context.Background(), time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ArticleStats() error = %v", err)
	}
	if stats.TotalArticles != 0 || stats.AvgImportanceScore != 5 || stats.OldestArticle != nil {
		t.Errorf("unexpected empty stats %+v", stats)
	}
}

func TestPostgresPersister(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := NewPostgresDB(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresDB() error = %v", err)
	}
	defer db.Close()
	if err := NewMigrationManager(db, 768).Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	p := NewPersister(db)
	url := "https://storydesk.test/" + time.Now().Format("20060102150405.000000000")
	article := newArticle(url, "Postgres round trip", time.Now())
	article.Embedding = make(core.Vector, 768)
	article.Embedding[0] = 1

	story, err := p.CreateStory(ctx, article, decision("Technology", "AI", 6, "db"))
	if err != nil {
		t.Fatalf("CreateStory() error = %v", err)
	}
	defer func() {
		_, _ = db.SQL().ExecContext(ctx, `DELETE FROM stories WHERE id = $1`, story.ID)
	}()

	again := newArticle(url, "Postgres round trip", time.Now())
	if err := p.AppendArticle(ctx, again, story.ID, decision("Technology", "AI", 6)); !errors.Is(err, ErrDuplicate) {
		t.Errorf("AppendArticle(duplicate) error = %v, want ErrDuplicate", err)
	}
}
