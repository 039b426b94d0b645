package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/anatolykoptev/go_recap/internal/engine"
	"github.com/anatolykoptev/go_recap/internal/engine/sources"
	"github.com/anatolykoptev/go_recap/internal/engine/videos"
	"github.com/anatolykoptev/go_recap/internal/history"
)

// version is stamped by main at startup.
var version = "dev"

// SetVersion records the build version reported by /api/v1/health.
func SetVersion(v string) { version = v }

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /summarize", s.handleSummarize)
	mux.HandleFunc("POST /api/v1/summarize", s.handleSummarize)
	mux.HandleFunc("POST /api/v1/batch", s.handleBatch)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/info", s.handleAPIInfo)
	mux.HandleFunc("GET /api/v1/video/{id}", s.handleVideoInfo)
	mux.HandleFunc("GET /api/v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /api/v1/cache/clear", s.handleCacheClear)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req engine.SummarizeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	res, err := videos.Summarize(r.Context(), req)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleBatch is a reserved surface: summarizing playlists needs queueing
// we don't have yet.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "batch summarization is not implemented")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"cache":   engine.Cfg.CacheEnabled,
		"history": history.Enabled(),
	})
}

func (s *Server) handleAPIInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "go_recap",
		"version": version,
		"endpoints": map[string]string{
			"POST /api/v1/summarize":   "summarize a video by URL",
			"POST /api/v1/batch":       "reserved",
			"GET /api/v1/health":       "service health",
			"GET /api/v1/info":         "this listing",
			"GET /api/v1/video/{id}":   "video metadata without summarizing",
			"GET /api/v1/cache/stats":  "cache hit/miss counters",
			"POST /api/v1/cache/clear": "drop cached results",
			"GET /api/v1/history":      "recent summaries",
			"GET /metrics":             "plain-text counters",
		},
	})
}

func (s *Server) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	videoID, err := sources.ExtractVideoID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, err := sources.FetchMetadata(r.Context(), videoID)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses := engine.CacheStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"hits":    hits,
		"misses":  misses,
		"entries": engine.CacheEntryCount(),
		"enabled": engine.Cfg.CacheEnabled,
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true" || r.URL.Query().Get("all") == "1"
	removed := engine.CacheClear(r.Context(), all)
	slog.Info("cache cleared", slog.Int("removed", removed), slog.Bool("all", all))
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "all": all})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !history.Enabled() {
		writeError(w, http.StatusNotFound, "history is not configured")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(engine.FormatMetrics()))
}

// mapError converts pipeline errors into HTTP status codes: the caller's
// fault is 400, YouTube's fault is 502, ours is 500.
func mapError(err error) (int, string) {
	switch {
	case engine.IsInputError(err):
		return http.StatusBadRequest, err.Error()
	case engine.IsUpstreamError(err):
		return http.StatusBadGateway, err.Error()
	case engine.IsInferenceError(err):
		return http.StatusInternalServerError, "summarization backend unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
