package summary

import "strings"

// classifierRule contributes weighted votes for one content type whenever
// its cue terms appear. Rules are data, not conditionals, so each one is
// testable in isolation.
type classifierRule struct {
	label  ContentType
	weight float64
	cues   []string
}

var classifierRules = []classifierRule{
	// Step-like imperative cues → tutorial.
	{ContentTutorial, 2.0, []string{"how to", "step by step", "tutorial", "let's start", "walkthrough"}},
	{ContentTutorial, 1.0, []string{"first", "next", "then", "finally", "install", "set up", "click", "guide"}},
	// Comparative / ratings vocabulary → review.
	{ContentReview, 2.0, []string{"review", "pros and cons", "rating", "unboxing", "better than", "worth buying"}},
	{ContentReview, 1.0, []string{"recommend", "verdict", "versus", "compared to", "price", "worth it"}},
	// Expository vocabulary → educational.
	{ContentEducational, 2.0, []string{"explain", "the science", "history of", "research shows", "in theory"}},
	{ContentEducational, 1.0, []string{"learn", "understand", "concept", "definition", "example", "because"}},
}

// Classify scores text against the weighted rule set and returns the winning
// content type with its vote share as confidence. Ties break by fixed
// priority order (tutorial, review, educational, other). Text with no cue
// hits is ContentOther with zero confidence.
func Classify(text string) (ContentType, float64) {
	lower := strings.ToLower(text)

	votes := map[ContentType]float64{}
	total := 0.0
	for _, r := range classifierRules {
		for _, cue := range r.cues {
			if n := countCue(lower, cue); n > 0 {
				v := r.weight * float64(n)
				votes[r.label] += v
				total += v
			}
		}
	}
	if total == 0 {
		return ContentOther, 0
	}

	best := ContentOther
	bestVotes := 0.0
	for _, label := range contentTypePriority {
		if votes[label] > bestVotes {
			best = label
			bestVotes = votes[label]
		}
	}
	return best, bestVotes / total
}

// countCue counts word-boundary occurrences of cue in lower.
func countCue(lower, cue string) int {
	count := 0
	for off := 0; ; {
		idx := strings.Index(lower[off:], cue)
		if idx < 0 {
			return count
		}
		at := off + idx
		end := at + len(cue)
		if boundaryBefore(lower, at) && boundaryAfter(lower, end) {
			count++
		}
		off = end
	}
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	return i >= len(s) || !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 'A' && b <= 'Z'
}
