package adjudicator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"storydesk/internal/core"
	"storydesk/internal/llm"
)

// MaxTags caps the tags kept from a model reply
const MaxTags = 4

var (
	errInvalidAction = errors.New("invalid action")
	errEmptyResponse = errors.New("empty response")
)

// flexibleInt accepts 7, 7.0, "7" and null
type flexibleInt struct {
	value int
	set   bool
}

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("importance_score: %w", err)
	}
	f.value = int(math.Round(v))
	f.set = true
	return nil
}

type modelReply struct {
	Action          string      `json:"action"`
	StoryID         *string     `json:"story_id"`
	ClusterID       *string     `json:"cluster_id"` // older prompt wording
	Reason          string      `json:"reason"`
	Category        string      `json:"category"`
	Subcategory     *string     `json:"subcategory"`
	Tags            []string    `json:"tags"`
	ImportanceScore flexibleInt `json:"importance_score"`
}

// parseDecision turns a model reply into a validated decision. candidates are ordered
// best first; storyIDs are their distinct stories. fallbackCategory fills an empty category.
func parseDecision(response string, candidates []core.Candidate, storyIDs []string, fallbackCategory string) (core.Decision, error) {
	cleaned := llm.CleanJSONResponse(response)
	if cleaned == "" {
		return core.Decision{}, errEmptyResponse
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return core.Decision{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	d := core.Decision{
		Action:          core.Action(strings.ToLower(strings.TrimSpace(reply.Action))),
		Category:        strings.TrimSpace(reply.Category),
		Tags:            core.NormalizeTags(reply.Tags, MaxTags),
		ImportanceScore: core.ClampImportance(reply.ImportanceScore.value),
		Rationale:       strings.TrimSpace(reply.Reason),
	}
	if !d.Action.Valid() {
		return core.Decision{}, fmt.Errorf("%w: %q", errInvalidAction, reply.Action)
	}
	if reply.Subcategory != nil {
		d.Subcategory = strings.TrimSpace(*reply.Subcategory)
	}
	if d.Category == "" {
		d.Category = fallbackCategory
	}

	switch d.Action {
	case core.ActionCreateNew:
		d.StoryID = ""
	case core.ActionJoinExisting:
		id := ""
		if reply.StoryID != nil {
			id = strings.TrimSpace(*reply.StoryID)
		} else if reply.ClusterID != nil {
			id = strings.TrimSpace(*reply.ClusterID)
		}
		if !contains(storyIDs, id) {
			id = ""
		}
		if id == "" && len(candidates) > 0 {
			id = candidates[0].StoryID
		}
		if id == "" {
			d.Action = core.ActionCreateNew
		}
		d.StoryID = id
	}

	return d, nil
}

func contains(ids []string, id string) bool {
	if id == "" {
		return false
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
