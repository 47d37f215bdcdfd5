package categorization

import (
	"strings"
	"unicode"
)

// keywordRule maps a set of title keywords to a category
type keywordRule struct {
	category string
	keywords []string
}

// Rules are checked in order; the first match wins.
var heuristicRules = []keywordRule{
	{category: "Technology", keywords: []string{"tech", "ai", "apple", "google", "microsoft"}},
	{category: "Politics", keywords: []string{"election", "president", "congress", "politics"}},
	{category: "Business", keywords: []string{"stock", "market", "economy", "business"}},
	{category: "Health", keywords: []string{"health", "medical", "covid", "vaccine"}},
}

// Heuristic categorizes a headline by keyword when no feed category is known.
// It returns Technology, Politics, Business, Health or DefaultCategory.
func Heuristic(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, rule := range heuristicRules {
		for _, word := range words {
			if matchesKeyword(word, rule.keywords) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}

// matchesKeyword matches short keywords exactly and longer ones as word prefixes,
// so "ai" does not fire on "said" while "market" still covers "markets".
func matchesKeyword(word string, keywords []string) bool {
	for _, kw := range keywords {
		if word == kw {
			return true
		}
		if len(kw) >= 4 && strings.HasPrefix(word, kw) {
			return true
		}
	}
	return false
}
