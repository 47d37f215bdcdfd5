package categorization

// Worked clustering decisions shown to the model, keyed by category.
var fewShotExamples = map[string]string{
	"Technology": `
Example 1 - CREATE NEW STORY:
Article: "Apple Announces New MacBook Pro with M3 Chip"
Summary: "Apple unveiled its latest MacBook Pro featuring the new M3 processor with improved performance and battery life"
Similar Articles: None found
Decision:
{
    "action": "create_new",
    "story_id": null,
    "reason": "New product announcement, no similar stories found",
    "category": "Technology",
    "subcategory": "Gadgets & Consumer Tech",
    "tags": ["Apple", "MacBook Pro", "M3 chip", "product launch"],
    "importance_score": 6
}

Example 2 - JOIN EXISTING STORY:
Article: "M3 MacBook Pro Shows 20% Performance Boost in Benchmarks"
Summary: "Early benchmark tests reveal significant performance improvements in the new M3-powered MacBook Pro"
Similar Articles: "Apple Announces New MacBook Pro with M3 Chip" (similarity: 0.890)
Decision:
{
    "action": "join_existing",
    "story_id": "tech-123-abc",
    "reason": "Same product launch story, just benchmark details",
    "category": "Technology",
    "subcategory": "Gadgets & Consumer Tech",
    "tags": ["Apple", "MacBook Pro", "benchmarks", "performance"],
    "importance_score": 5
}

Example 3 - CREATE NEW (different story):
Article: "Google Releases Gemini 2.0 AI Model"
Summary: "Google announced Gemini 2.0, its most advanced AI model with multimodal capabilities"
Similar Articles: "Apple Announces New MacBook Pro with M3 Chip" (similarity: 0.720)
Decision:
{
    "action": "create_new",
    "story_id": null,
    "reason": "Different company, different product category (AI vs hardware)",
    "category": "Technology",
    "subcategory": "AI & Machine Learning",
    "tags": ["Google", "Gemini", "AI model", "multimodal"],
    "importance_score": 8
}`,

	"Sports": `
Example 1 - CREATE NEW STORY:
Article: "Tiger Woods Wins Masters Tournament by 2 Strokes"
Summary: "Tiger Woods captured his sixth Masters title with a final round 68 at Augusta National"
Similar Articles: None found
Decision:
{
    "action": "create_new",
    "story_id": null,
    "reason": "Major tournament victory, standalone story",
    "category": "Sports",
    "subcategory": "Golf",
    "tags": ["Tiger Woods", "Masters Tournament", "Augusta National", "major championship"],
    "importance_score": 7
}

Example 2 - JOIN EXISTING STORY:
Article: "Woods' Masters Victory Breaks 5-Year Major Drought"
Summary: "Tiger Woods' Masters win ends his longest stretch without a major championship since turning pro"
Similar Articles: "Tiger Woods Wins Masters Tournament by 2 Strokes" (similarity: 0.920)
Decision:
{
    "action": "join_existing",
    "story_id": "sports-456-def",
    "reason": "Same tournament victory, additional context about drought",
    "category": "Sports",
    "subcategory": "Golf",
    "tags": ["Tiger Woods", "Masters Tournament", "major drought", "comeback"],
    "importance_score": 7
}

Example 3 - CREATE NEW (different event):
Article: "Rory McIlroy Leads PGA Championship After Round 1"
Summary: "Rory McIlroy shot 65 to take early lead at PGA Championship at Baltusrol"
Similar Articles: "Tiger Woods Wins Masters Tournament by 2 Strokes" (similarity: 0.680)
Decision:
{
    "action": "create_new",
    "story_id": null,
    "reason": "Different tournament, different player, different time period",
    "category": "Sports",
    "subcategory": "Golf",
    "tags": ["Rory McIlroy", "PGA Championship", "Baltusrol", "first round lead"],
    "importance_score": 5
}`,

	"Business": `
Example 1 - CREATE NEW STORY:
Article: "Tesla Reports Record Q3 Earnings Beat Expectations"
Summary: "Tesla posted quarterly revenue of $25.2B, beating analyst estimates by 8%"
Similar Articles: None found
Decision:
{
    "action": "create_new",
    "story_id": null,
    "reason": "Quarterly earnings report, standalone financial news",
    "category": "Business",
    "subcategory": "Corporations & earnings",
    "tags": ["Tesla", "Q3 earnings", "revenue beat"],
    "importance_score": 6
}

Example 2 - JOIN EXISTING STORY:
Article: "Tesla Stock Surges 12% After Strong Earnings Report"
Summary: "Tesla shares jumped in after-hours trading following better-than-expected quarterly results"
Similar Articles: "Tesla Reports Record Q3 Earnings Beat Expectations" (similarity: 0.850)
Decision:
{
    "action": "join_existing",
    "story_id": "biz-789-ghi",
    "reason": "Market reaction to same earnings report",
    "category": "Business",
    "subcategory": "Markets",
    "tags": ["Tesla", "stock surge", "earnings reaction"],
    "importance_score": 6
}`,

	"Politics & Government": `
Example 1 - CREATE NEW STORY:
Article: "Senate Passes Bipartisan Infrastructure Bill 69-30"
Summary: "The $1.2 trillion infrastructure package received broad bipartisan support in final Senate vote"
Similar Articles: None found
Decision:
{
    "action": "create_new",
    "story_id": null,
    "reason": "Major legislative passage, new policy story",
    "category": "Politics & Government",
    "subcategory": "Policy & Legislation",
    "tags": ["infrastructure bill", "bipartisan", "Senate vote"],
    "importance_score": 8
}

Example 2 - JOIN EXISTING STORY:
Article: "House Expected to Vote on Infrastructure Bill Next Week"
Summary: "House leadership schedules vote on Senate-passed infrastructure package for Tuesday"
Similar Articles: "Senate Passes Bipartisan Infrastructure Bill 69-30" (similarity: 0.880)
Decision:
{
    "action": "join_existing",
    "story_id": "pol-321-jkl",
    "reason": "Same legislation, next step in legislative process",
    "category": "Politics & Government",
    "subcategory": "Policy & Legislation",
    "tags": ["infrastructure bill", "House vote", "legislative process"],
    "importance_score": 7
}`,
}

const genericExamples = `
Example - CREATE NEW STORY:
Article: "[Title of article about current topic]"
Summary: "[Brief summary of the article content]"
Similar Articles: None found or different topic
Decision:
{
    "action": "create_new",
    "story_id": null,
    "reason": "New story or different from existing articles",
    "category": "[Current Category]",
    "subcategory": "[Appropriate subcategory]",
    "tags": ["key-entity", "main-topic", "relevant-theme"],
    "importance_score": 5
}

Example - JOIN EXISTING STORY:
Article: "[Related article title]"
Summary: "[Summary of related content]"
Similar Articles: "[Previous article title]" (similarity: 0.850+)
Decision:
{
    "action": "join_existing",
    "story_id": "story-id-123",
    "reason": "Same story/event, additional details or perspective",
    "category": "[Current Category]",
    "subcategory": "[Appropriate subcategory]",
    "tags": ["shared-entities", "same-topic", "additional-context"],
    "importance_score": 5
}`

// FewShotExamples returns worked decisions for a category, or a generic pair.
func FewShotExamples(category string) string {
	if ex, ok := fewShotExamples[category]; ok {
		return ex
	}
	return genericExamples
}
