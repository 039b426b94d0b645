package summary

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

// positionBoost scales how much an early first occurrence lifts a term's
// score: score = freq * (1 + positionBoost * (1 - firstPos/total)).
const positionBoost = 0.5

// Corpus holds document frequencies from a reference corpus, enabling IDF
// weighting during keyword extraction. A nil Corpus degrades extraction to
// raw frequency scoring.
type Corpus struct {
	docs    int
	docFreq map[string]int
}

// LoadCorpus reads a reference corpus file, one document per line, and
// builds term document frequencies over the same token stream used for
// extraction.
func LoadCorpus(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	c := &Corpus{docFreq: map[string]int{}}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		c.docs++
		seen := map[string]bool{}
		for _, tok := range tokenize(line) {
			seen[tok] = true
		}
		for tok := range seen {
			c.docFreq[tok]++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return c, nil
}

// idf returns the inverse document frequency weight for term; 1.0 when the
// corpus is nil or empty.
func (c *Corpus) idf(term string) float64 {
	if c == nil || c.docs == 0 {
		return 1.0
	}
	return math.Log(1 + float64(c.docs)/float64(1+c.docFreq[term]))
}

// tokenize lowercases text and returns alphanumeric words of three or more
// characters with stop words removed.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	})
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		w = strings.Trim(w, "'")
		if len(w) < 3 || stopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Keywords extracts up to max ranked terms from text using frequency scoring
// over stop-word-filtered unigrams and bigrams, boosted by early position
// and (when corpus is non-nil) inverse document frequency. Results sort by
// descending score with alphabetical tie-breaking for determinism; terms are
// distinct after case normalization.
func Keywords(text string, max int, corpus *Corpus) ([]Keyword, error) {
	if max <= 0 {
		return nil, fmt.Errorf("%w: max_keywords %d must be > 0", ErrInvalidConfig, max)
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	type stat struct {
		freq     int
		firstPos int
	}
	stats := map[string]*stat{}
	note := func(term string, pos int) {
		if s, ok := stats[term]; ok {
			s.freq++
		} else {
			stats[term] = &stat{freq: 1, firstPos: pos}
		}
	}
	for i, tok := range tokens {
		note(tok, i)
		if i+1 < len(tokens) {
			note(tok+" "+tokens[i+1], i)
		}
	}

	total := float64(len(tokens))
	ranked := make([]Keyword, 0, len(stats))
	for term, s := range stats {
		// Bigrams must repeat to outrank their parts; a one-off pair is
		// usually noise.
		if strings.Contains(term, " ") && s.freq < 2 {
			continue
		}
		score := float64(s.freq) * (1 + positionBoost*(1-float64(s.firstPos)/total)) * corpus.idf(term)
		ranked = append(ranked, Keyword{Term: term, Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Term < ranked[j].Term
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked, nil
}
