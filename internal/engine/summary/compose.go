package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// minFragmentTarget floors the per-chunk inference target so the proportional
// formula never asks the backend for a degenerate zero-length summary.
const minFragmentTarget = 32

// fragmentTarget computes the inference target length for one chunk:
// min(maxSummary/numChunks, chunkLen*ratio), floored at minFragmentTarget
// and never above the chunk itself.
func fragmentTarget(chunkLen, numChunks int, opts Options) int {
	target := opts.MaxSummaryLength / numChunks
	if byRatio := int(float64(chunkLen) * opts.CompressionRatio); byRatio < target {
		target = byRatio
	}
	if target < minFragmentTarget {
		target = minFragmentTarget
	}
	if target > chunkLen {
		target = chunkLen
	}
	return target
}

// Compose summarizes each chunk through s and merges the fragments into the
// final artifact. Chunks are independent, so they run concurrently; order is
// restored by chunk index before merging, never by completion order. A chunk
// whose inference fails is retried once with half the target length, then
// dropped. Compose fails only when every chunk fails; partial failure
// degrades the result and may set the Short flag.
func Compose(ctx context.Context, s Summarizer, chunks []Chunk, opts Options) (Composed, error) {
	if err := opts.Validate(); err != nil {
		return Composed{}, err
	}
	if len(chunks) == 0 {
		return Composed{}, fmt.Errorf("%w: no chunks to summarize", ErrUnavailable)
	}

	fragments := make([]string, len(chunks))
	var wg sync.WaitGroup
	for _, c := range chunks {
		wg.Add(1)
		go func(c Chunk) {
			defer wg.Done()
			fragments[c.Index] = summarizeChunk(ctx, s, c, len(chunks), opts)
		}(c)
	}
	wg.Wait()

	failed := 0
	merged := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f == "" {
			failed++
			continue
		}
		merged = append(merged, f)
	}
	if len(merged) == 0 {
		return Composed{}, fmt.Errorf("%w: all %d chunks failed", ErrUnavailable, len(chunks))
	}

	text := TruncateAtSentence(strings.Join(merged, "\n\n"), opts.MaxSummaryLength)

	source := joinChunks(chunks)
	label, confidence := Classify(source)

	out := Composed{
		Text:         text,
		KeyPoints:    keyPoints(text, opts.MaxKeyPoints),
		ContentType:  label,
		Confidence:   confidence,
		Short:        len(text) < opts.MinSummaryLength,
		FailedChunks: failed,
	}
	return out, nil
}

// summarizeChunk runs inference for one chunk, retrying once with a shorter
// target before giving up. Returns "" on failure.
func summarizeChunk(ctx context.Context, s Summarizer, c Chunk, numChunks int, opts Options) string {
	target := fragmentTarget(len(c.Text), numChunks, opts)

	frag, err := s.Infer(ctx, c.Text, target)
	if err != nil {
		slog.Warn("summary: chunk inference failed, retrying shorter",
			slog.Int("chunk", c.Index), slog.Int("target", target), slog.Any("error", err))
		frag, err = s.Infer(ctx, c.Text, target/2)
	}
	if err != nil {
		slog.Warn("summary: chunk dropped",
			slog.Int("chunk", c.Index), slog.Any("error", err))
		return ""
	}
	return strings.TrimSpace(frag)
}

func joinChunks(chunks []Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

// TruncateAtSentence caps text at the last complete sentence boundary not
// past max. When even the first sentence overruns, that sentence is kept
// whole — the contract tolerates at most one sentence of overrun rather than
// a mid-sentence cut.
func TruncateAtSentence(text string, max int) string {
	if len(text) <= max {
		return text
	}
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return text
	}
	kept := sentences[0]
	for _, s := range sentences[1:] {
		if len(kept)+1+len(s) > max {
			break
		}
		kept += " " + s
	}
	return kept
}

// overlapScore credits each keyword hit in toks. Keywords ranks bigrams as
// well as unigrams, so adjacent token pairs are checked too.
func overlapScore(toks []string, terms map[string]bool) float64 {
	var score float64
	for j, tok := range toks {
		if terms[tok] {
			score += 0.25
		}
		if j+1 < len(toks) && terms[tok+" "+toks[j+1]] {
			score += 0.25
		}
	}
	return score
}

// keyPoints selects the top-n sentences of the composed summary, scored by
// position (earlier favored) plus keyword overlap, ties broken by original
// order. Returned points keep their original order of appearance.
func keyPoints(text string, n int) []string {
	sentences := SplitSentences(text)
	if len(sentences) <= 1 {
		return nil
	}

	kws, _ := Keywords(text, 10, nil)
	terms := make(map[string]bool, len(kws))
	for _, k := range kws {
		terms[k.Term] = true
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		ranked = append(ranked, scored{idx: i, score: 1.0/float64(1+i) + overlapScore(tokenize(s), terms)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if n > len(ranked) {
		n = len(ranked)
	}
	top := ranked[:n]
	sort.Slice(top, func(i, j int) bool { return top[i].idx < top[j].idx })

	points := make([]string, 0, n)
	for _, s := range top {
		// Strip newlines left by fragment separators.
		points = append(points, collapseSpace(sentences[s.idx]))
	}
	return points
}
