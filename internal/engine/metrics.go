package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	SummarizeRequests  atomic.Int64
	TranscriptRequests atomic.Int64
	MetadataRequests   atomic.Int64
	InferenceCalls     atomic.Int64
	InferenceErrors    atomic.Int64
	HistoryWrites      atomic.Int64
}

// GetMetrics returns a snapshot of all counters including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"summarize_requests":  metrics.SummarizeRequests.Load(),
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"metadata_requests":   metrics.MetadataRequests.Load(),
		"inference_calls":     metrics.InferenceCalls.Load(),
		"inference_errors":    metrics.InferenceErrors.Load(),
		"history_writes":      metrics.HistoryWrites.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics renders the counters as plain text for the /metrics endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	keys := []string{
		"summarize_requests", "transcript_requests", "metadata_requests",
		"inference_calls", "inference_errors", "history_writes",
		"cache_hits", "cache_misses",
	}
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the sources/ and videos/ sub-packages.
func IncrSummarizeRequests()  { metrics.SummarizeRequests.Add(1) }
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrMetadataRequests()   { metrics.MetadataRequests.Add(1) }
func IncrInferenceCalls()     { metrics.InferenceCalls.Add(1) }
func IncrInferenceErrors()    { metrics.InferenceErrors.Add(1) }
func IncrHistoryWrites()      { metrics.HistoryWrites.Add(1) }

// TrackOperation logs a warning when an operation exceeds the threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 10*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
