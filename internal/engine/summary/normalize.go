package summary

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Bracketed non-speech annotations: [music], [applause], (inaudible).
var annotationRe = regexp.MustCompile(`[\[(][^\])]*[\])]`)

// stripMarkup removes inline caption markup (<c>, <i>, timing tags) using a
// tolerant HTML tokenizer, keeping only text content. Plain text passes
// through unchanged, which keeps Normalize idempotent.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	tok := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			return b.String()
		}
		if tt == html.TextToken {
			b.Write(tok.Text())
		}
	}
}

// collapseSpace reduces all whitespace runs to single spaces and trims.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize turns raw caption segments into clean contiguous prose:
// concatenate in start-time order, strip markup and bracketed annotations,
// collapse whitespace, and drop adjacent duplicate sentences (an artifact of
// auto-generated captions). Returns ErrEmptyTranscript when no segment
// carries speech. No other semantic alteration is made, so applying
// Normalize to its own output is a no-op.
func Normalize(t Transcript) (string, error) {
	segs := make([]Segment, len(t))
	copy(segs, t)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	parts := make([]string, 0, len(segs))
	for _, seg := range segs {
		text := stripMarkup(seg.Text)
		text = annotationRe.ReplaceAllString(text, " ")
		text = collapseSpace(text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyTranscript
	}

	return dedupeAdjacent(strings.Join(parts, " ")), nil
}

// dedupeAdjacent keeps one of each run of adjacent sentences that are
// identical after canonical (lowercased, punctuation-stripped) comparison.
func dedupeAdjacent(text string) string {
	sentences := SplitSentences(text)
	if len(sentences) < 2 {
		return text
	}
	kept := sentences[:1]
	prev := canonicalSentence(sentences[0])
	for _, s := range sentences[1:] {
		canon := canonicalSentence(s)
		if canon != "" && canon == prev {
			continue
		}
		kept = append(kept, s)
		prev = canon
	}
	return strings.Join(kept, " ")
}
