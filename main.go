// go_recap — YouTube video summarizer.
//
// Fetches a video's captions, summarizes them chunk-by-chunk with an LLM,
// and composes a labeled summary with key points and keywords. Serves a
// JSON API and a small web UI; can also run as an MCP server so agents can
// call the pipeline as a tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_recap/internal/engine"
	"github.com/anatolykoptev/go_recap/internal/engine/summary"
	"github.com/anatolykoptev/go_recap/internal/engine/videos"
	"github.com/anatolykoptev/go_recap/internal/history"
	"github.com/anatolykoptev/go_recap/internal/recapserver"
	"github.com/anatolykoptev/go_recap/internal/server"
)

var version = "dev"

func main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "go_recap",
		Short:        "Summarize YouTube videos from their captions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and web UI (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	summarize := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Summarize one video and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(cmd.Context(), args[0])
		},
	}

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server exposing video_summarize and video_info",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(serve, summarize, mcpCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath, err := initEngine()
	if err != nil {
		return err
	}

	if configPath != "" {
		go func() {
			if err := engine.WatchConfigFile(ctx, configPath); err != nil && ctx.Err() == nil {
				slog.Warn("config watch stopped", slog.Any("error", err))
			}
		}()
	}

	addr := env.Str("LISTEN_ADDR", ":8890")
	server.SetVersion(version)
	slog.Info("starting go_recap", slog.String("version", version), slog.String("addr", addr))
	return server.New(addr).Run(ctx)
}

func runSummarize(ctx context.Context, url string) error {
	if _, err := initEngine(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	res, err := videos.Summarize(ctx, engine.SummarizeRequest{URL: url})
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runMCP() error {
	if _, err := initEngine(); err != nil {
		return err
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "go_recap",
		Version: version,
	}, nil)
	recapserver.RegisterTools(mcpServer)

	return mcpserver.Run(mcpServer, mcpserver.Config{
		Name:         "go_recap",
		Version:      version,
		Port:         env.Str("MCP_PORT", "8891"),
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	})
}

// initEngine builds the engine configuration from the optional YAML config
// file and the environment (env wins), then wires the summarizer, cache,
// and history store. Returns the config file path for hot reload.
func initEngine() (string, error) {
	configPath := env.Str("CONFIG_FILE", "recap.yaml")
	fc, err := engine.LoadConfigFile(configPath)
	if err != nil {
		return "", err
	}

	c := engine.Config{
		LLMBackend:         env.Str("LLM_BACKEND", "openai"),
		LLMAPIKey:          env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:           env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:     env.Float("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", 4096),

		MaxSummaryLength:    env.Int("MAX_SUMMARY_LENGTH", engine.Or(fc.Summary.MaxLength, 1200)),
		MinSummaryLength:    env.Int("MIN_SUMMARY_LENGTH", engine.Or(fc.Summary.MinLength, 100)),
		MaxTranscriptLength: env.Int("MAX_TRANSCRIPT_LENGTH", engine.Or(fc.Transcript.MaxLength, 120000)),
		MinTranscriptLength: env.Int("MIN_TRANSCRIPT_LENGTH", engine.Or(fc.Transcript.MinLength, 40)),
		ChunkMaxChars:       env.Int("CHUNK_MAX_CHARS", engine.Or(fc.Summary.ChunkMaxChars, 2800)),
		CompressionRatio:    env.Float("COMPRESSION_RATIO", engine.Or(fc.Summary.CompressionRatio, 0.3)),
		MaxKeywords:         env.Int("MAX_KEYWORDS", engine.Or(fc.Keywords.Max, 10)),
		MaxKeyPoints:        env.Int("MAX_KEY_POINTS", engine.Or(fc.Keywords.KeyPoints, 5)),

		EnableKeywordExtraction:     envBool("ENABLE_KEYWORDS", engine.Or(fc.Keywords.Enabled, true)),
		EnableAdvancedSummarization: envBool("ENABLE_ADVANCED_SUMMARIZATION", true),
		KeywordCorpusPath:           env.Str("KEYWORD_CORPUS", ""),

		CacheEnabled:         envBool("CACHE_ENABLED", engine.Or(fc.Cache.Enabled, true)),
		CacheTTL:             env.Duration("CACHE_TTL", time.Duration(engine.Or(fc.Cache.DurationHours, 24))*time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", engine.Or(fc.Cache.MaxEntries, 1000)),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),

		RateLimitRPS:   env.Float("RATE_LIMIT_RPS", 2),
		RateLimitBurst: env.Int("RATE_LIMIT_BURST", 5),

		TranscriptLangs: env.List("TRANSCRIPT_LANGS", "en"),
		FetchTimeout:    env.Duration("FETCH_TIMEOUT", 30*time.Second),
		DatabaseURL:     env.Str("DATABASE_URL", ""),

		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	bc, err := stealth.NewClient(stealth.WithTimeout(15))
	if err != nil {
		slog.Warn("stealth client init failed, using plain HTTP", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
	}

	if c.KeywordCorpusPath != "" {
		corpus, err := summary.LoadCorpus(c.KeywordCorpusPath)
		if err != nil {
			slog.Warn("keyword corpus load failed, using raw frequencies", slog.Any("error", err))
		} else {
			c.Corpus = corpus
		}
	}

	c.Summarizer, err = engine.NewSummarizer(c)
	if err != nil {
		return "", err
	}

	if err := engine.Init(c); err != nil {
		return "", err
	}

	if c.CacheEnabled {
		engine.InitCache(env.Str("REDIS_URL", ""), c.CacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
	}

	initHistory(c.DatabaseURL)
	return configPath, nil
}

// initHistory wires the history store: PostgreSQL when DATABASE_URL is set,
// local SQLite otherwise. Failures disable history rather than abort.
func initHistory(databaseURL string) {
	if !envBool("HISTORY_ENABLED", true) {
		return
	}
	if databaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := history.ConnectPostgres(ctx, databaseURL)
		if err != nil {
			slog.Warn("history: postgres init failed, history disabled", slog.Any("error", err))
			return
		}
		history.SetStore(store)
		slog.Info("history: postgres store ready")
		return
	}
	store, err := history.OpenSQLite(history.DefaultSQLitePath())
	if err != nil {
		slog.Warn("history: sqlite init failed, history disabled", slog.Any("error", err))
		return
	}
	history.SetStore(store)
	slog.Info("history: sqlite store ready", slog.String("path", history.DefaultSQLitePath()))
}

// envBool reads a boolean env var, falling back to def on absence or junk.
func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
