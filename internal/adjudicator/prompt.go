package adjudicator

import (
	"fmt"
	"strings"

	"storydesk/internal/categorization"
	"storydesk/internal/core"
)

// buildPrompt renders the clustering question for one article and its candidates
func buildPrompt(article core.IncomingArticle, category string, subcategories []string, candidates []core.Candidate) string {
	var sb strings.Builder

	summary := strings.TrimSpace(article.Summary)
	if summary == "" {
		summary = "No summary"
	}

	sb.WriteString("You are a news editor determining if articles belong to the same story.\n\n")

	sb.WriteString("NEW ARTICLE:\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", article.Title))
	sb.WriteString(fmt.Sprintf("Summary: %s\n", summary))
	sb.WriteString(fmt.Sprintf("Source: %s\n", article.SourceName))
	sb.WriteString(fmt.Sprintf("Feed Category: %s\n\n", category))

	sb.WriteString("SIMILAR EXISTING ARTICLES:\n")
	if len(candidates) == 0 {
		sb.WriteString("None found\n")
	}
	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("\n%d. Title: %s\n", i+1, c.Title))
		sb.WriteString(fmt.Sprintf("   Summary: %s\n", c.Summary))
		sb.WriteString(fmt.Sprintf("   Story ID: %s\n", c.StoryID))
		sb.WriteString(fmt.Sprintf("   Similarity: %.3f\n", c.Similarity))
	}

	vocabulary := "None defined"
	if len(subcategories) > 0 {
		vocabulary = strings.Join(subcategories, ", ")
	}

	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("1. Determine if the new article is about the same story as any existing article\n")
	sb.WriteString("2. Consider: same event, same people/companies, same timeframe, same core topic\n")
	sb.WriteString("3. Don't cluster if articles are just in the same category but about different events\n")
	sb.WriteString(fmt.Sprintf("4. The article is from a %s feed, so assign an appropriate subcategory from: %s\n", category, vocabulary))
	sb.WriteString("5. Generate 2-4 relevant tags that capture key entities, topics, or themes\n")
	sb.WriteString("6. Rate importance from 1 (niche) to 10 (major breaking news)\n\n")

	sb.WriteString("EXAMPLES:\n")
	sb.WriteString(categorization.FewShotExamples(category))
	sb.WriteString("\n\n")

	sb.WriteString("Respond with JSON only:\n")
	sb.WriteString("{\n")
	sb.WriteString(`    "action": "join_existing" or "create_new",` + "\n")
	sb.WriteString(`    "story_id": "story_id_to_join" or null,` + "\n")
	sb.WriteString(`    "reason": "brief explanation",` + "\n")
	sb.WriteString(fmt.Sprintf(`    "category": "%s",`+"\n", category))
	sb.WriteString(fmt.Sprintf(`    "subcategory": "choose from: %s",`+"\n", vocabulary))
	sb.WriteString(`    "tags": ["tag1", "tag2", "tag3"],` + "\n")
	sb.WriteString(`    "importance_score": 1-10` + "\n")
	sb.WriteString("}")

	return sb.String()
}
