package summary

import "fmt"

// minFragmentChars is the floor below which a trailing chunk is folded into
// its predecessor rather than sent to inference on its own.
const minFragmentChars = 32

// Split packs sentences greedily into chunks of at most maxChars characters.
// A single sentence longer than maxChars becomes its own oversized chunk:
// feeding inference a truncated word is worse than an oversized chunk, so
// boundaries land on sentence ends only, never mid-word. A trailing fragment
// shorter than minFragmentChars merges into the previous chunk even when
// that pushes it past maxChars. Joining the chunk texts with single spaces
// reconstructs the input exactly.
func Split(text string, maxChars int) ([]Chunk, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be > 0", ErrInvalidConfig, maxChars)
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []Chunk
	cur := sentences[0]
	for _, s := range sentences[1:] {
		if len(cur)+1+len(s) > maxChars {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: cur})
			cur = s
			continue
		}
		cur += " " + s
	}
	if len(chunks) > 0 && len(cur) < minFragmentChars {
		chunks[len(chunks)-1].Text += " " + cur
		return chunks, nil
	}
	chunks = append(chunks, Chunk{Index: len(chunks), Text: cur})
	return chunks, nil
}
