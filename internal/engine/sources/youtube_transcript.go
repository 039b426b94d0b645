package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go_recap/internal/engine"
	"github.com/anatolykoptev/go_recap/internal/engine/summary"
)

// YouTube transcript fetching.
// Primary:  scrape watch page ytInitialPlayerResponse → caption XML (works from any IP)
// Fallback: ANDROID Innertube /player → captionTracks (works from non-blocked IPs)

// ytInitialPlayerResponseMarker marks the start of the player response JSON
// in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// FetchTranscript returns the caption track of a video as timestamped
// segments, preferring manual captions in the requested languages.
func FetchTranscript(ctx context.Context, videoID string, langs []string) (summary.Transcript, error) {
	engine.IncrTranscriptRequests()

	transcript, scrapeErr := fetchTranscriptViaPageScrape(ctx, videoID, langs)
	if scrapeErr == nil {
		return transcript, nil
	}
	// A private video is definitive: the fallback sees the same thing.
	if errors.Is(scrapeErr, engine.ErrPrivateVideo) {
		return nil, scrapeErr
	}
	slog.Warn("youtube: page scrape failed, trying android player",
		slog.String("id", videoID), slog.Any("err", scrapeErr))

	transcript, playerErr := fetchTranscriptViaPlayer(ctx, videoID, langs)
	if playerErr == nil {
		return transcript, nil
	}
	if errors.Is(playerErr, engine.ErrPrivateVideo) || errors.Is(playerErr, engine.ErrNoCaptions) {
		return nil, playerErr
	}
	return nil, &engine.UpstreamError{Source: "youtube", Err: fmt.Errorf("page scrape: %v; android player: %w", scrapeErr, playerErr)}
}

// fetchTranscriptViaPageScrape scrapes the watch page HTML and extracts the
// caption track URL from ytInitialPlayerResponse.
func fetchTranscriptViaPageScrape(ctx context.Context, videoID string, langs []string) (summary.Transcript, error) {
	body, err := fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, err
	}

	idx := strings.Index(string(body), ytInitialPlayerResponseMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return transcriptFromPlayerResp(ctx, &playerResp, langs)
}

// fetchTranscriptViaPlayer uses the ANDROID Innertube /player endpoint.
func fetchTranscriptViaPlayer(ctx context.Context, videoID string, langs []string) (summary.Transcript, error) {
	playerResp, err := postInnerTubeAndroid(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return transcriptFromPlayerResp(ctx, playerResp, langs)
}

// transcriptFromPlayerResp maps a player response onto the error taxonomy
// and fetches the selected caption track.
func transcriptFromPlayerResp(ctx context.Context, playerResp *innertubePlayerResp, langs []string) (summary.Transcript, error) {
	if err := playabilityError(playerResp); err != nil {
		return nil, err
	}
	if playerResp.Captions == nil {
		return nil, engine.ErrNoCaptions
	}
	tracks := playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, engine.ErrNoCaptions
	}
	track, ok := pickBestTrack(tracks, langs)
	if !ok {
		return nil, fmt.Errorf("%w: all caption tracks require PoToken", engine.ErrNoCaptions)
	}
	return fetchTimedText(ctx, track.BaseURL)
}

// playabilityError maps playabilityStatus onto the engine error taxonomy.
func playabilityError(resp *innertubePlayerResp) error {
	st := resp.PlayabilityStatus
	if st == nil || st.Status == "" || st.Status == "OK" {
		return nil
	}
	switch st.Status {
	case "LOGIN_REQUIRED", "AGE_CHECK_REQUIRED", "CONTENT_CHECK_REQUIRED":
		return fmt.Errorf("%w: %s", engine.ErrPrivateVideo, st.Reason)
	case "UNPLAYABLE", "ERROR":
		if strings.Contains(strings.ToLower(st.Reason), "private") {
			return fmt.Errorf("%w: %s", engine.ErrPrivateVideo, st.Reason)
		}
		return &engine.UpstreamError{Source: "youtube", Err: fmt.Errorf("video unplayable: %s", st.Reason)}
	default:
		return &engine.UpstreamError{Source: "youtube", Err: fmt.Errorf("playability %s: %s", st.Status, st.Reason)}
	}
}

// needsPoToken reports whether a caption track URL requires a PoToken
// (browser-only). Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the language
// preferences: manual in a preferred language, then auto-generated in a
// preferred language, then any English track, then whatever is left.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return tracks[0], false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// fetchTimedText fetches a timedtext XML caption URL and converts it to
// timestamped segments. Markup inside segments is left for Normalize.
func fetchTimedText(ctx context.Context, baseURL string) (summary.Transcript, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, err
	}

	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	transcript := make(summary.Transcript, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		transcript = append(transcript, summary.Segment{
			Start:    time.Duration(line.Start * float64(time.Second)),
			Duration: time.Duration(line.Dur * float64(time.Second)),
			Text:     line.Text,
		})
	}
	if len(transcript) == 0 {
		return nil, engine.ErrNoCaptions
	}
	return transcript, nil
}

// fetchWatchPage fetches the watch page HTML, through the stealth browser
// client when one is configured. YouTube serves a consent wall to some
// non-browser TLS fingerprints.
func fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	watchURL := "https://www.youtube.com/watch?v=" + videoID

	if engine.Cfg.BrowserClient != nil {
		headers := engine.ChromeHeaders()
		headers["accept-language"] = "en-US,en;q=0.9"
		return engine.RetryDo(ctx, engine.DefaultRetryConfig, func() ([]byte, error) {
			data, _, status, err := engine.Cfg.BrowserClient.Do("GET", watchURL, headers, nil)
			if err != nil {
				return nil, err
			}
			if status != http.StatusOK {
				return nil, fmt.Errorf("watch page status %d", status)
			}
			return data, nil
		})
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
}
