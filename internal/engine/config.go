package engine

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go_recap/internal/engine/summary"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	// Inference backend.
	LLMBackend         string // "openai" (any OpenAI-compatible API) or "gemini"
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int

	// Pipeline bounds.
	MaxSummaryLength    int
	MinSummaryLength    int
	MaxTranscriptLength int
	MinTranscriptLength int
	ChunkMaxChars       int
	CompressionRatio    float64
	MaxKeywords         int
	MaxKeyPoints        int

	EnableKeywordExtraction     bool
	EnableAdvancedSummarization bool
	KeywordCorpusPath           string

	// Result cache.
	CacheEnabled         bool
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	// HTTP boundary.
	RateLimitRPS   float64
	RateLimitBurst int

	TranscriptLangs []string
	FetchTimeout    time.Duration
	DatabaseURL     string

	HTTPClient    *http.Client
	BrowserClient *stealth.BrowserClient // nil = plain HTTP for watch-page fetches

	Summarizer summary.Summarizer
	Corpus     *summary.Corpus // nil = raw frequency keyword scoring
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, videos).
// Always points to the current cfg value.
var Cfg = &cfg

// runtimeOpts holds the hot-reloadable pipeline bounds; see configfile.go.
var runtimeOpts atomic.Pointer[summary.Options]

// Init validates and installs the engine configuration. Bounds errors are
// fatal: a process with bad limits must not serve requests.
func Init(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	Cfg = &cfg
	opts := c.options()
	runtimeOpts.Store(&opts)
	return nil
}

// Options returns the current pipeline bounds. Safe for concurrent use with
// config hot-reload.
func Options() summary.Options {
	return *runtimeOpts.Load()
}

// SetOptions swaps the pipeline bounds at runtime (config file reload).
func SetOptions(o summary.Options) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	runtimeOpts.Store(&o)
	return nil
}

func (c Config) options() summary.Options {
	return summary.Options{
		MaxSummaryLength: c.MaxSummaryLength,
		MinSummaryLength: c.MinSummaryLength,
		ChunkMaxChars:    c.ChunkMaxChars,
		CompressionRatio: c.CompressionRatio,
		MaxKeywords:      c.MaxKeywords,
		MaxKeyPoints:     c.MaxKeyPoints,
	}
}

// Validate checks the numeric bounds. Called once at startup.
func (c Config) Validate() error {
	if err := c.options().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	switch {
	case c.MaxTranscriptLength <= 0:
		return fmt.Errorf("%w: max_transcript_length must be > 0", ErrConfig)
	case c.MinTranscriptLength < 0:
		return fmt.Errorf("%w: min_transcript_length must be >= 0", ErrConfig)
	case c.MinTranscriptLength > c.MaxTranscriptLength:
		return fmt.Errorf("%w: min_transcript_length exceeds max_transcript_length", ErrConfig)
	case c.CacheEnabled && c.CacheTTL <= 0:
		return fmt.Errorf("%w: cache_duration must be > 0 when cache is enabled", ErrConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must be >= 0", ErrConfig)
	}
	return nil
}
