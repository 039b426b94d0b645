package summary

import "strings"

// isTerminal reports whether b ends a sentence.
func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}

func isLetterByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// abbreviations whose trailing period does not end a sentence.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "st": {},
	"vs": {}, "etc": {}, "inc": {}, "jr": {}, "sr": {}, "approx": {},
	"e.g": {}, "i.e": {},
}

// isAbbreviation reports whether the period at text[dot] belongs to an
// abbreviation or a single-letter initial rather than a sentence end.
func isAbbreviation(text string, dot int) bool {
	j := dot
	for j > 0 && (isLetterByte(text[j-1]) || text[j-1] == '.') {
		j--
	}
	word := strings.ToLower(strings.TrimSuffix(text[j:dot], "."))
	if len(word) == 1 && isLetterByte(word[0]) {
		return true
	}
	_, ok := abbreviations[word]
	return ok
}

// SplitSentences splits text on terminal punctuation followed by whitespace.
// Punctuation and a closing quote stay with their sentence; joining the
// result with single spaces reconstructs single-spaced input exactly. "3.5",
// "Dr." and single-letter initials do not split. A trailing run without
// terminal punctuation becomes the final sentence.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	i := 0
	for i < len(text) {
		if !isTerminal(text[i]) {
			i++
			continue
		}
		runStart := i
		// Consume the full punctuation run ("...", "?!").
		for i+1 < len(text) && isTerminal(text[i+1]) {
			i++
		}
		if text[i] == '.' && i == runStart && isAbbreviation(text, runStart) {
			i++
			continue
		}
		// A closing quote belongs to the sentence it closes.
		if i+1 < len(text) && (text[i+1] == '"' || text[i+1] == '\'') {
			i++
		}
		// Only a boundary when whitespace follows; "3.5" stays intact.
		if i+1 < len(text) && !isSpaceByte(text[i+1]) {
			i++
			continue
		}
		out = append(out, text[start:i+1])
		i++
		for i < len(text) && isSpaceByte(text[i]) {
			i++
		}
		start = i
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// canonicalSentence lowercases s, drops punctuation, and collapses
// whitespace. Used to detect caption-repetition artifacts.
func canonicalSentence(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
			prevSpace = false
		default:
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}
