// Package summary implements the transcript → summary content pipeline:
// normalize → chunk → per-chunk inference → compose → keywords.
//
// The package owns no I/O besides calls through the Summarizer capability;
// everything else is pure text processing, so each stage is unit-testable
// in isolation.
package summary

import (
	"context"
	"errors"
	"time"
)

// Segment is one caption line with its timing. Source captions may jitter
// (overlapping or out-of-order segments); Normalize tolerates both.
type Segment struct {
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
	Text     string        `json:"text"`
}

// Transcript is an ordered sequence of caption segments for one video.
type Transcript []Segment

// Chunk is a bounded-length contiguous slice of normalized transcript text,
// submitted to inference as one unit. Index preserves original order so
// fragments can be re-joined after concurrent summarization.
type Chunk struct {
	Index int
	Text  string
}

// ContentType is the closed-set classification of a video's rhetorical form.
type ContentType string

const (
	ContentTutorial    ContentType = "tutorial"
	ContentReview      ContentType = "review"
	ContentEducational ContentType = "educational"
	ContentOther       ContentType = "other"
)

// contentTypePriority fixes tie-breaking order for classification.
var contentTypePriority = []ContentType{ContentTutorial, ContentReview, ContentEducational, ContentOther}

// Options bound the pipeline output. Zero values are invalid; call
// DefaultOptions and override.
type Options struct {
	MaxSummaryLength int     `json:"max_summary_length"`
	MinSummaryLength int     `json:"min_summary_length"`
	ChunkMaxChars    int     `json:"chunk_max_chars"`
	CompressionRatio float64 `json:"compression_ratio"`
	MaxKeywords      int     `json:"max_keywords"`
	MaxKeyPoints     int     `json:"max_key_points"`
}

// DefaultOptions returns the standard pipeline bounds.
func DefaultOptions() Options {
	return Options{
		MaxSummaryLength: 1200,
		MinSummaryLength: 100,
		ChunkMaxChars:    2800,
		CompressionRatio: 0.3,
		MaxKeywords:      10,
		MaxKeyPoints:     5,
	}
}

// Validate reports the first invalid bound, or nil.
func (o Options) Validate() error {
	switch {
	case o.MaxSummaryLength <= 0:
		return errInvalid("max_summary_length must be > 0")
	case o.MinSummaryLength < 0:
		return errInvalid("min_summary_length must be >= 0")
	case o.MinSummaryLength > o.MaxSummaryLength:
		return errInvalid("min_summary_length must not exceed max_summary_length")
	case o.ChunkMaxChars <= 0:
		return errInvalid("chunk_max_chars must be > 0")
	case o.CompressionRatio <= 0 || o.CompressionRatio > 1:
		return errInvalid("compression_ratio must be in (0, 1]")
	case o.MaxKeywords <= 0:
		return errInvalid("max_keywords must be > 0")
	case o.MaxKeyPoints <= 0:
		return errInvalid("max_key_points must be > 0")
	}
	return nil
}

// Composed is the final pipeline artifact for one transcript.
type Composed struct {
	Text        string      `json:"text"`
	KeyPoints   []string    `json:"key_points,omitempty"`
	ContentType ContentType `json:"content_type"`
	Confidence  float64     `json:"confidence"`

	// Short marks a result below MinSummaryLength after partial chunk
	// failures. It is a quality flag, not an error.
	Short        bool `json:"short,omitempty"`
	FailedChunks int  `json:"failed_chunks,omitempty"`
}

// Keyword is a ranked term extracted from normalized text.
type Keyword struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Summarizer is the external inference capability. Implementations live in
// internal/engine; tests inject fakes.
type Summarizer interface {
	Infer(ctx context.Context, text string, targetLen int) (string, error)
}

// Pipeline errors. Callers map these onto the service error taxonomy.
var (
	// ErrEmptyTranscript: every segment was empty or whitespace.
	ErrEmptyTranscript = errors.New("transcript has no speech content")

	// ErrInvalidConfig: a caller passed non-positive or inconsistent bounds.
	ErrInvalidConfig = errors.New("invalid summarization configuration")

	// ErrUnavailable: every chunk's inference call failed.
	ErrUnavailable = errors.New("summarization unavailable")
)

func errInvalid(msg string) error {
	return &invalidConfigError{msg: msg}
}

type invalidConfigError struct{ msg string }

func (e *invalidConfigError) Error() string { return "invalid summarization configuration: " + e.msg }
func (e *invalidConfigError) Unwrap() error { return ErrInvalidConfig }
