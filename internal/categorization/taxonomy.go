package categorization

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCategory is used for feeds and articles that match no configured category
const DefaultCategory = "General"

// Category is one top-level topic with its subcategory vocabulary and source feeds
type Category struct {
	Name          string   `yaml:"name"`
	Subcategories []string `yaml:"subcategories"`
	Feeds         []string `yaml:"feeds"`
}

// Taxonomy is the read-only category configuration shared by the adjudicator and the feed poller
type Taxonomy struct {
	Categories []Category `yaml:"categories"`
}

// FeedSource pairs a feed URL with the category it was configured under
type FeedSource struct {
	URL      string
	Category string
}

// DefaultTaxonomy returns the built-in category set
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{Categories: []Category{
		{
			Name:          "World News",
			Subcategories: []string{"Africa", "Asia", "Europe", "Middle East", "North America", "South America", "Oceania"},
			Feeds: []string{
				"https://feeds.bbci.co.uk/news/world/rss.xml",
				"https://feeds.bbci.co.uk/news/rss.xml",
				"http://rss.cnn.com/rss/cnn_topstories.rss",
				"http://rss.cnn.com/rss/cnn_world.rss",
				"https://www.yahoo.com/news/rss",
				"https://moxie.foxnews.com/google-publisher/latest.xml",
			},
		},
		{
			Name:          "Politics & Government",
			Subcategories: []string{"US Politics", "International Politics", "Elections", "Policy & Legislation", "Government Affairs"},
			Feeds: []string{
				"http://rss.cnn.com/rss/cnn_allpolitics.rss",
				"https://moxie.foxnews.com/google-publisher/politics.xml",
				"https://feeds.npr.org/1014/rss.xml",
			},
		},
		{
			Name:          "Business",
			Subcategories: []string{"Markets", "Corporations & earnings", "Startups & Entrepreneurship", "Economy and Policy"},
			Feeds: []string{
				"https://finance.yahoo.com/news/rssindex",
				"https://feeds.bbci.co.uk/news/business/rss.xml",
			},
		},
		{
			Name:          "Technology",
			Subcategories: []string{"AI & Machine Learning", "Gadgets & Consumer Tech", "Software & Apps", "Cybersecurity", "Hardware & Infrastructure"},
			Feeds: []string{
				"https://feeds.bbci.co.uk/news/technology/rss.xml",
				"https://feeds.foxnews.com/foxnews/tech",
				"http://rss.cnn.com/rss/cnn_tech.rss",
				"https://news.ycombinator.com/rss",
			},
		},
		{
			Name: "Science & Environment",
			Subcategories: []string{
				"Space & Astronomy", "Biology", "Physics & Chemistry", "Research & Academia",
				"Climate & Weather", "Sustainability", "Conservation & Wildlife",
			},
			Feeds: []string{
				"https://feeds.npr.org/1026/rss.xml",
				"https://feeds.bbci.co.uk/news/science_and_environment/rss.xml",
				"https://feeds.npr.org/1167/rss.xml",
				"https://moxie.foxnews.com/google-publisher/science.xml",
			},
		},
		{
			Name:          "Health",
			Subcategories: []string{"Public Health", "Medicine & Healthcare", "Fitness & Wellness", "Mental Health"},
			Feeds: []string{
				"https://feeds.bbci.co.uk/news/health/rss.xml",
				"https://news.yahoo.com/rss/health",
				"https://feeds.npr.org/1128/rss.xml",
			},
		},
		{
			Name: "Sports",
			Subcategories: []string{
				"Football (Soccer)", "American Football", "Basketball", "Baseball", "Cricket",
				"Tennis", "F1", "Boxing", "MMA", "Golf", "Ice hockey", "Rugby",
				"Volleyball", "Table Tennis (Ping Pong)", "Athletics",
			},
			Feeds: []string{
				"https://sports.yahoo.com/soccer/news/rss/",
				"https://sports.yahoo.com/nfl/news/rss/",
				"https://sports.yahoo.com/nba/news/rss/",
				"https://sports.yahoo.com/mlb/news/rss/",
				"https://sports.yahoo.com/tennis/news/rss/",
				"https://sports.yahoo.com/boxing/news/rss/",
				"https://sports.yahoo.com/mma/news/rss/",
				"https://sports.yahoo.com/golf/news/rss/",
				"https://sports.yahoo.com/nhl/news/rss/",
				"https://feeds.bbci.co.uk/sport/rss.xml",
				"https://www.espn.com/espn/rss/news",
				"https://moxie.foxnews.com/google-publisher/sports.xml",
			},
		},
		{
			Name:          "Arts & Culture",
			Subcategories: []string{"Celebrity News", "Gaming", "Film & TV", "Music", "Literature", "Art & Design", "Fashion"},
			Feeds: []string{
				"https://feeds.npr.org/1039/rss.xml",
				"https://feeds.npr.org/1045/rss.xml",
				"https://feeds.npr.org/1138/rss.xml",
				"https://feeds.npr.org/1048/rss.xml",
				"https://feeds.npr.org/1008/rss.xml",
				"https://feeds.bbci.co.uk/news/entertainment_and_arts/rss.xml",
				"https://www.bbc.com/culture/feed.rss",
			},
		},
		{
			Name:          "Lifestyle",
			Subcategories: []string{"Travel", "Food & Dining", "Home & Garden", "Relationships & Family", "Hobbies"},
			Feeds: []string{
				"https://feeds.npr.org/1053/rss.xml",
				"https://www.bbc.com/travel/feed.rss",
				"https://www.yahoo.com/lifestyle/rss",
				"https://moxie.foxnews.com/google-publisher/travel.xml",
			},
		},
	}}
}

// LoadTaxonomy reads a taxonomy from a YAML file. An empty path returns the default.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}

	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy file %s: %w", path, err)
	}
	if len(t.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy file %s defines no categories", path)
	}
	for i, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("taxonomy file %s: category %d has no name", path, i)
		}
	}

	return &t, nil
}

func (t *Taxonomy) find(category string) *Category {
	for i := range t.Categories {
		if strings.EqualFold(t.Categories[i].Name, strings.TrimSpace(category)) {
			return &t.Categories[i]
		}
	}
	return nil
}

// CategoryNames returns the configured category names in order
func (t *Taxonomy) CategoryNames() []string {
	names := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		names[i] = c.Name
	}
	return names
}

// Subcategories returns the vocabulary for a category, or nil when the category is unknown
func (t *Taxonomy) Subcategories(category string) []string {
	if c := t.find(category); c != nil {
		return c.Subcategories
	}
	return nil
}

// MatchSubcategory resolves a model-proposed subcategory against the vocabulary.
// It returns the canonical spelling and true on a case-insensitive match.
func (t *Taxonomy) MatchSubcategory(category, subcategory string) (string, bool) {
	subcategory = strings.TrimSpace(subcategory)
	if subcategory == "" {
		return "", false
	}
	for _, s := range t.Subcategories(category) {
		if strings.EqualFold(s, subcategory) {
			return s, true
		}
	}
	return "", false
}

// FeedCategory returns the category a feed URL is configured under, or DefaultCategory
func (t *Taxonomy) FeedCategory(feedURL string) string {
	for _, c := range t.Categories {
		for _, f := range c.Feeds {
			if f == feedURL {
				return c.Name
			}
		}
	}
	return DefaultCategory
}

// Feeds returns every configured feed. A URL listed under several categories is returned once,
// attributed to the first.
func (t *Taxonomy) Feeds() []FeedSource {
	var sources []FeedSource
	seen := make(map[string]bool)
	for _, c := range t.Categories {
		for _, f := range c.Feeds {
			if seen[f] {
				continue
			}
			seen[f] = true
			sources = append(sources, FeedSource{URL: f, Category: c.Name})
		}
	}
	return sources
}
