package engine

import "github.com/anatolykoptev/go_recap/internal/engine/summary"

// VideoInfo is best-effort metadata for a video. Any field may be empty;
// metadata failures never fail the pipeline.
type VideoInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title,omitempty"`
	Channel      string `json:"channel,omitempty"`
	Duration     int64  `json:"duration_seconds,omitempty"`
	ViewCount    int64  `json:"view_count,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// SummarizeRequest is the input to the summarize pipeline.
type SummarizeRequest struct {
	URL             string `json:"url"`
	MaxLength       int    `json:"max_length,omitempty"`
	IncludeKeywords *bool  `json:"include_keywords,omitempty"`
}

// ProcessingStats describes one pipeline run for the caller.
type ProcessingStats struct {
	TranscriptChars  int     `json:"transcript_chars"`
	SummaryChars     int     `json:"summary_chars"`
	Chunks           int     `json:"chunks"`
	CompressionPct   float64 `json:"compression_pct"`
	ReadingTimeMin   int     `json:"reading_time_min"`
	ProcessingMillis int64   `json:"processing_ms"`
	Truncated        bool    `json:"transcript_truncated,omitempty"`
}

// SummarizeResult is the composed artifact served to callers and stored in
// the result cache.
type SummarizeResult struct {
	VideoID   string            `json:"video_id"`
	Summary   summary.Composed  `json:"summary"`
	Keywords  []summary.Keyword `json:"keywords,omitempty"`
	VideoInfo VideoInfo         `json:"video_info"`
	Cached    bool              `json:"cached"`
	Stats     ProcessingStats   `json:"processing_stats"`
}
