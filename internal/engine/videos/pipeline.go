// Package videos orchestrates the summarize pipeline: URL → transcript →
// normalize → chunk → compose → keywords, with result caching in front.
package videos

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anatolykoptev/go_recap/internal/engine"
	"github.com/anatolykoptev/go_recap/internal/engine/sources"
	"github.com/anatolykoptev/go_recap/internal/engine/summary"
	"github.com/anatolykoptev/go_recap/internal/history"
)

// inflight collapses concurrent requests for the same fingerprint into one
// pipeline run; the duplicates get the shared result.
var inflight singleflight.Group

// Summarize runs the full pipeline for one video, serving from cache when a
// fresh result exists for the same video and bounds.
func Summarize(ctx context.Context, req engine.SummarizeRequest) (engine.SummarizeResult, error) {
	engine.IncrSummarizeRequests()

	videoID, err := sources.ExtractVideoID(req.URL)
	if err != nil {
		return engine.SummarizeResult{}, err
	}

	opts := engine.Options()
	if req.MaxLength > 0 {
		opts.MaxSummaryLength = clamp(req.MaxLength, opts.MinSummaryLength, opts.MaxSummaryLength)
	}
	includeKeywords := engine.Cfg.EnableKeywordExtraction
	if req.IncludeKeywords != nil {
		includeKeywords = *req.IncludeKeywords
	}

	fp := engine.Fingerprint(videoID, opts, includeKeywords)
	if engine.Cfg.CacheEnabled {
		if res, ok := engine.CacheGet(ctx, fp); ok {
			res.Cached = true
			return res, nil
		}
	}

	v, err, shared := inflight.Do(fp, func() (any, error) {
		return run(ctx, videoID, fp, opts, includeKeywords)
	})
	if err != nil {
		return engine.SummarizeResult{}, err
	}
	res := v.(engine.SummarizeResult)
	if shared {
		slog.Debug("pipeline: joined in-flight computation", slog.String("video", videoID))
	}
	return res, nil
}

// run is one uncached pipeline execution.
func run(ctx context.Context, videoID, fp string, opts summary.Options, includeKeywords bool) (engine.SummarizeResult, error) {
	start := time.Now()

	// Metadata in parallel with the transcript work; its failure never
	// fails the request.
	infoCh := make(chan engine.VideoInfo, 1)
	go func() {
		info, err := sources.FetchMetadata(ctx, videoID)
		if err != nil {
			slog.Debug("pipeline: metadata unavailable", slog.String("video", videoID), slog.Any("error", err))
			info = engine.VideoInfo{ID: videoID}
		}
		infoCh <- info
	}()

	fetchCtx := ctx
	if engine.Cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, engine.Cfg.FetchTimeout)
		defer cancel()
	}
	transcript, err := sources.FetchTranscript(fetchCtx, videoID, engine.Cfg.TranscriptLangs)
	if err != nil {
		return engine.SummarizeResult{}, err
	}

	text, err := summary.Normalize(transcript)
	if err != nil {
		return engine.SummarizeResult{}, err
	}
	if len(text) < engine.Cfg.MinTranscriptLength {
		return engine.SummarizeResult{}, fmt.Errorf("%w: %d chars", engine.ErrTranscriptTooShort, len(text))
	}
	truncated := false
	if len(text) > engine.Cfg.MaxTranscriptLength {
		text = summary.TruncateAtSentence(text, engine.Cfg.MaxTranscriptLength)
		truncated = true
		slog.Info("pipeline: transcript truncated",
			slog.String("video", videoID),
			slog.Int("chars", engine.Cfg.MaxTranscriptLength))
	}
	transcriptChars := len(text)

	chunkMax := opts.ChunkMaxChars
	if !engine.Cfg.EnableAdvancedSummarization {
		// Single chunk: one inference call over the whole transcript.
		chunkMax = len(text)
	}
	chunks, err := summary.Split(text, chunkMax)
	if err != nil {
		return engine.SummarizeResult{}, err
	}

	var (
		keywords []summary.Keyword
		kwErr    error
		wg       sync.WaitGroup
	)
	if includeKeywords {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keywords, kwErr = summary.Keywords(text, opts.MaxKeywords, engine.Cfg.Corpus)
		}()
	}

	composed, err := summary.Compose(ctx, engine.Cfg.Summarizer, chunks, opts)
	wg.Wait()
	if err != nil {
		return engine.SummarizeResult{}, err
	}
	if kwErr != nil {
		slog.Warn("pipeline: keyword extraction failed", slog.String("video", videoID), slog.Any("error", kwErr))
		keywords = nil
	}

	info := <-infoCh

	res := engine.SummarizeResult{
		VideoID:   videoID,
		Summary:   composed,
		Keywords:  keywords,
		VideoInfo: info,
		Stats: engine.ProcessingStats{
			TranscriptChars:  transcriptChars,
			SummaryChars:     len(composed.Text),
			Chunks:           len(chunks),
			CompressionPct:   engine.CompressionPct(transcriptChars, len(composed.Text)),
			ReadingTimeMin:   engine.ReadingTimeMinutes(composed.Text),
			ProcessingMillis: time.Since(start).Milliseconds(),
			Truncated:        truncated,
		},
	}

	if engine.Cfg.CacheEnabled {
		engine.CacheSet(ctx, fp, res)
	}
	recordHistory(ctx, res)

	slog.Info("pipeline: summarized",
		slog.String("video", videoID),
		slog.Int("transcript_chars", transcriptChars),
		slog.Int("summary_chars", len(composed.Text)),
		slog.Int("chunks", len(chunks)),
		slog.Duration("elapsed", time.Since(start)))

	return res, nil
}

// recordHistory persists a line in the request history store, best-effort.
func recordHistory(ctx context.Context, res engine.SummarizeResult) {
	if !history.Enabled() {
		return
	}
	err := history.Record(ctx, history.Entry{
		VideoID:     res.VideoID,
		Title:       res.VideoInfo.Title,
		Channel:     res.VideoInfo.Channel,
		ContentType: string(res.Summary.ContentType),
		SummaryLen:  res.Stats.SummaryChars,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("pipeline: history write failed", slog.Any("error", err))
		return
	}
	engine.IncrHistoryWrites()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
