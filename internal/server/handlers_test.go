package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anatolykoptev/go_recap/internal/engine"
	"github.com/anatolykoptev/go_recap/internal/engine/summary"
	"github.com/anatolykoptev/go_recap/internal/history"
)

func newTestServer(t *testing.T, mutate func(*engine.Config)) *httptest.Server {
	t.Helper()
	c := engine.Config{
		MaxSummaryLength:            1200,
		MinSummaryLength:            100,
		MaxTranscriptLength:         120000,
		MinTranscriptLength:         40,
		ChunkMaxChars:               2800,
		CompressionRatio:            0.3,
		MaxKeywords:                 10,
		MaxKeyPoints:                5,
		EnableKeywordExtraction:     true,
		EnableAdvancedSummarization: true,
		CacheEnabled:                true,
		CacheTTL:                    time.Minute,
		HTTPClient:                  &http.Client{Timeout: time.Second},
	}
	if mutate != nil {
		mutate(&c)
	}
	if err := engine.Init(c); err != nil {
		t.Fatalf("engine.Init: %v", err)
	}
	engine.InitCache("", time.Minute, 100, time.Minute)

	srv := httptest.NewServer(New("127.0.0.1:0").httpServer.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	var body map[string]any
	resp := getJSON(t, srv.URL+"/api/v1/health", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestAPIInfo(t *testing.T) {
	srv := newTestServer(t, nil)

	var body map[string]any
	resp := getJSON(t, srv.URL+"/api/v1/info", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["name"] != "go_recap" {
		t.Errorf("name field = %v", body["name"])
	}
	endpoints, ok := body["endpoints"].(map[string]any)
	if !ok || len(endpoints) == 0 {
		t.Fatalf("endpoints missing: %v", body["endpoints"])
	}
	if _, ok := endpoints["POST /api/v1/summarize"]; !ok {
		t.Error("endpoint listing omits the summarize route")
	}
}

func TestSummarizeBadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"missing url", `{}`, http.StatusBadRequest},
		{"non-youtube url", `{"url":"https://vimeo.com/123"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/summarize", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			var e map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e["error"] == "" {
				t.Errorf("expected error payload, got %v (%v)", e, err)
			}
		})
	}
}

func TestSummarizeCached(t *testing.T) {
	srv := newTestServer(t, nil)

	const videoID = "dQw4w9WgXcQ"
	fp := engine.Fingerprint(videoID, engine.Options(), true)
	engine.CacheSet(t.Context(), fp, engine.SummarizeResult{
		VideoID: videoID,
		Summary: summary.Composed{Text: "a cached summary", ContentType: summary.ContentTutorial, Confidence: 0.8},
	})

	resp, err := http.Post(srv.URL+"/summarize", "application/json",
		strings.NewReader(`{"url":"https://youtu.be/`+videoID+`"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res engine.SummarizeResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.Cached {
		t.Error("Cached = false, want true")
	}
	if res.Summary.Text != "a cached summary" {
		t.Errorf("summary = %q", res.Summary.Text)
	}
}

func TestBatchNotImplemented(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/v1/batch", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}

func TestVideoInfoBadID(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := getJSON(t, srv.URL+"/api/v1/video/not-an-id", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	srv := newTestServer(t, nil)

	fp := engine.Fingerprint("dQw4w9WgXcQ", engine.Options(), true)
	engine.CacheSet(t.Context(), fp, engine.SummarizeResult{VideoID: "dQw4w9WgXcQ"})

	var stats map[string]any
	getJSON(t, srv.URL+"/api/v1/cache/stats", &stats)
	if stats["entries"].(float64) < 1 {
		t.Errorf("entries = %v, want >= 1", stats["entries"])
	}

	resp, err := http.Post(srv.URL+"/api/v1/cache/clear?all=true", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var cleared map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&cleared); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if cleared["removed"].(float64) < 1 {
		t.Errorf("removed = %v, want >= 1", cleared["removed"])
	}

	getJSON(t, srv.URL+"/api/v1/cache/stats", &stats)
	if stats["entries"].(float64) != 0 {
		t.Errorf("entries after clear = %v, want 0", stats["entries"])
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("not configured", func(t *testing.T) {
		history.SetStore(nil)
		resp := getJSON(t, srv.URL+"/api/v1/history", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("configured", func(t *testing.T) {
		store, err := history.OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
		if err != nil {
			t.Fatal(err)
		}
		history.SetStore(store)
		t.Cleanup(func() { history.SetStore(nil); store.Close() })

		if err := history.Record(t.Context(), history.Entry{
			VideoID: "dQw4w9WgXcQ", ContentType: "other", CreatedAt: time.Now(),
		}); err != nil {
			t.Fatal(err)
		}

		var body struct {
			Entries []history.Entry `json:"entries"`
		}
		resp := getJSON(t, srv.URL+"/api/v1/history?limit=10", &body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if len(body.Entries) != 1 {
			t.Errorf("entries = %d, want 1", len(body.Entries))
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	body := make([]byte, 4096)
	n, _ := resp.Body.Read(body)
	if !strings.Contains(string(body[:n]), "summarize_requests") {
		t.Errorf("metrics body missing counters: %q", body[:n])
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, func(c *engine.Config) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})

	first := getJSON(t, srv.URL+"/api/v1/health", nil)
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first request status = %d", first.StatusCode)
	}
	second := getJSON(t, srv.URL+"/api/v1/health", nil)
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", second.StatusCode)
	}
}

func TestIndexServed(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
}
