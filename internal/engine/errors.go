package engine

import (
	"errors"

	"github.com/anatolykoptev/go_recap/internal/engine/summary"
)

// Service error taxonomy. Input errors are the caller's fault, upstream
// errors come from YouTube, inference errors from the model backend.
// Configuration errors are fatal at startup and never occur mid-request.
var (
	ErrInvalidURL         = errors.New("not a valid YouTube URL")
	ErrNoCaptions         = errors.New("no captions available for this video")
	ErrPrivateVideo       = errors.New("video is private or unavailable")
	ErrTranscriptTooShort = errors.New("transcript too short to summarize")
	ErrConfig             = errors.New("invalid configuration")
)

// UpstreamError wraps a transcript or metadata fetch failure with the
// external source that produced it.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string { return e.Source + ": " + e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

// InferenceError wraps a model backend failure.
type InferenceError struct {
	Backend string
	Err     error
}

func (e *InferenceError) Error() string { return "inference (" + e.Backend + "): " + e.Err.Error() }
func (e *InferenceError) Unwrap() error { return e.Err }

// IsInputError reports whether err should surface as a 400-equivalent.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrTranscriptTooShort) ||
		errors.Is(err, summary.ErrEmptyTranscript)
}

// IsUpstreamError reports whether err came from an external source
// (no captions, private video, network failure).
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.Is(err, ErrNoCaptions) ||
		errors.Is(err, ErrPrivateVideo) ||
		errors.As(err, &ue)
}

// IsInferenceError reports whether err came from the summarization backend
// after retries were exhausted.
func IsInferenceError(err error) bool {
	var ie *InferenceError
	return errors.As(err, &ie) || errors.Is(err, summary.ErrUnavailable)
}
