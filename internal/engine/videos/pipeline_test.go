package videos

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anatolykoptev/go_recap/internal/engine"
	"github.com/anatolykoptev/go_recap/internal/engine/summary"
)

func initTestEngine(t *testing.T) {
	t.Helper()
	err := engine.Init(engine.Config{
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
	})
	if err != nil {
		t.Fatalf("engine.Init: %v", err)
	}
	engine.InitCache("", time.Minute, 100, time.Minute)
}

func TestSummarizeInvalidURL(t *testing.T) {
	initTestEngine(t)

	_, err := Summarize(context.Background(), engine.SummarizeRequest{URL: "https://vimeo.com/123"})
	if !errors.Is(err, engine.ErrInvalidURL) {
		t.Errorf("err = %v, want ErrInvalidURL", err)
	}

	_, err = Summarize(context.Background(), engine.SummarizeRequest{URL: ""})
	if !errors.Is(err, engine.ErrInvalidURL) {
		t.Errorf("empty url err = %v, want ErrInvalidURL", err)
	}
}

func TestSummarizeServesFromCache(t *testing.T) {
	initTestEngine(t)
	ctx := context.Background()

	const videoID = "dQw4w9WgXcQ"
	fp := engine.Fingerprint(videoID, engine.Options(), true)
	seeded := engine.SummarizeResult{
		VideoID: videoID,
		Summary: summary.Composed{Text: "seeded summary", ContentType: summary.ContentOther},
	}
	engine.CacheSet(ctx, fp, seeded)

	got, err := Summarize(ctx, engine.SummarizeRequest{URL: "https://youtu.be/" + videoID})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !got.Cached {
		t.Error("Cached = false, want true")
	}
	if got.Summary.Text != "seeded summary" {
		t.Errorf("Summary.Text = %q, want seeded value", got.Summary.Text)
	}
}

func TestCachedFlagNotStored(t *testing.T) {
	// The Cached flag is per-response, set on the way out; the stored
	// payload must keep it false so later misses don't lie.
	initTestEngine(t)
	ctx := context.Background()

	fp := engine.Fingerprint("jNQXAC9IVRw", engine.Options(), true)
	engine.CacheSet(ctx, fp, engine.SummarizeResult{VideoID: "jNQXAC9IVRw"})

	stored, ok := engine.CacheGet(ctx, fp)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if stored.Cached {
		t.Error("stored result has Cached = true")
	}
}

func TestRequestOverridesChangeFingerprint(t *testing.T) {
	initTestEngine(t)
	opts := engine.Options()

	base := engine.Fingerprint("dQw4w9WgXcQ", opts, true)

	shorter := opts
	shorter.MaxSummaryLength = 500
	if engine.Fingerprint("dQw4w9WgXcQ", shorter, true) == base {
		t.Error("max length override should produce a distinct fingerprint")
	}
	if engine.Fingerprint("dQw4w9WgXcQ", opts, false) == base {
		t.Error("keyword toggle should produce a distinct fingerprint")
	}
}

// roundTripFunc lets a test serve canned responses for any URL.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// fakeYouTubeTransport serves a watch page with an embedded player response
// and its caption track, so the full pipeline runs without the network.
func fakeYouTubeTransport() http.RoundTripper {
	page := `<html><script>var ytInitialPlayerResponse = {` +
		`"playabilityStatus":{"status":"OK"},` +
		`"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[` +
		`{"baseUrl":"https://www.youtube.com/api/timedtext?v=pastaCook01","languageCode":"en"}]}}};</script></html>`
	timedtext := `<transcript>` +
		`<text start="0" dur="4">This video explains how to cook pasta from start to finish.</text>` +
		`<text start="4" dur="4">First boil a large pot of salted water before adding anything.</text>` +
		`</transcript>`
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		var body string
		status := http.StatusOK
		switch {
		case strings.Contains(r.URL.Path, "/watch"):
			body = page
		case strings.Contains(r.URL.Path, "/api/timedtext"):
			body = timedtext
		default:
			status = http.StatusNotFound
		}
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})
}

// countingSummarizer counts Infer calls and holds each one long enough for
// concurrent requests to overlap.
type countingSummarizer struct {
	calls atomic.Int32
	delay time.Duration
}

func (s *countingSummarizer) Infer(ctx context.Context, text string, targetLen int) (string, error) {
	s.calls.Add(1)
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "Boil salted water before cooking the pasta.", nil
}

func TestConcurrentRequestsShareOneRun(t *testing.T) {
	initTestEngine(t)
	engine.Cfg.HTTPClient = &http.Client{Transport: fakeYouTubeTransport(), Timeout: 5 * time.Second}
	s := &countingSummarizer{delay: 200 * time.Millisecond}
	engine.Cfg.Summarizer = s

	const url = "https://www.youtube.com/watch?v=pastaCook01"
	const n = 4
	var (
		wg      sync.WaitGroup
		results [n]engine.SummarizeResult
		errs    [n]error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Summarize(context.Background(), engine.SummarizeRequest{URL: url})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if results[i].Summary.Text != results[0].Summary.Text {
			t.Errorf("request %d got a different summary: %q vs %q", i, results[i].Summary.Text, results[0].Summary.Text)
		}
	}
	if got := s.calls.Load(); got != 1 {
		t.Errorf("inference ran %d times for one fingerprint, want 1", got)
	}

	fp := engine.Fingerprint("pastaCook01", engine.Options(), true)
	cached, ok := engine.CacheGet(context.Background(), fp)
	if !ok {
		t.Fatal("expected the shared result to be cached")
	}
	if cached.Summary.Text != results[0].Summary.Text {
		t.Errorf("cached summary %q differs from served %q", cached.Summary.Text, results[0].Summary.Text)
	}
	if cached.Cached {
		t.Error("stored result has Cached = true")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want int
	}{
		{500, 100, 1200, 500},
		{50, 100, 1200, 100},
		{5000, 100, 1200, 1200},
	}
	for _, tt := range tests {
		if got := clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}
