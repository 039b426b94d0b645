package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"

	"github.com/anatolykoptev/go_recap/internal/engine"
)

// Video metadata is best-effort: a summary without a title is still a
// summary. oEmbed gives title/channel/thumbnail cheaply; duration and view
// count need the watch page meta tags.

const ytOEmbedURL = "https://www.youtube.com/oembed"

type oEmbedResp struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// FetchMetadata collects whatever video metadata is reachable. Partial
// results are normal; only a total failure on every path is an error.
func FetchMetadata(ctx context.Context, videoID string) (engine.VideoInfo, error) {
	engine.IncrMetadataRequests()
	info := engine.VideoInfo{ID: videoID}

	oe, oeErr := fetchOEmbed(ctx, videoID)
	if oeErr == nil {
		info.Title = oe.Title
		info.Channel = oe.AuthorName
		info.ThumbnailURL = oe.ThumbnailURL
	}

	meta, pageErr := fetchWatchMeta(ctx, videoID)
	if pageErr == nil {
		if info.Title == "" {
			info.Title = meta.Title
		}
		if info.Channel == "" {
			info.Channel = meta.Channel
		}
		if info.ThumbnailURL == "" {
			info.ThumbnailURL = meta.ThumbnailURL
		}
		info.Duration = int64(meta.Duration.Seconds())
		info.ViewCount = meta.ViewCount
	}

	if oeErr != nil && pageErr != nil {
		return info, &engine.UpstreamError{Source: "youtube", Err: fmt.Errorf("oembed: %v; watch page: %w", oeErr, pageErr)}
	}
	return info, nil
}

// fetchOEmbed asks the oEmbed endpoint for basic metadata. Uses backoff
// rather than the engine retry helper: oEmbed 404s permanently for private
// or removed videos and must not be hammered.
func fetchOEmbed(ctx context.Context, videoID string) (*oEmbedResp, error) {
	target := ytOEmbedURL + "?format=json&url=" + url.QueryEscape("https://www.youtube.com/watch?v="+videoID)

	op := func() (*oEmbedResp, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		resp, err := engine.Cfg.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, fmt.Errorf("oembed status %d", resp.StatusCode)
		default:
			return nil, backoff.Permanent(fmt.Errorf("oembed status %d", resp.StatusCode))
		}
		var oe oEmbedResp
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&oe); err != nil {
			return nil, backoff.Permanent(err)
		}
		return &oe, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(3),
		backoff.WithMaxElapsedTime(10*time.Second),
	)
}

// watchMeta is what the watch page <meta> tags give us.
type watchMeta struct {
	Title        string
	Channel      string
	ThumbnailURL string
	Duration     time.Duration
	ViewCount    int64
}

// fetchWatchMeta scrapes the watch page meta tags with goquery.
func fetchWatchMeta(ctx context.Context, videoID string) (*watchMeta, error) {
	body, err := fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return parseWatchMeta(body)
}

func parseWatchMeta(body []byte) (*watchMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}

	meta := &watchMeta{}
	metaContent := func(sel string) string {
		v, _ := doc.Find(sel).First().Attr("content")
		return strings.TrimSpace(v)
	}

	meta.Title = metaContent(`meta[property="og:title"]`)
	if meta.Title == "" {
		meta.Title = metaContent(`meta[name="title"]`)
	}
	meta.ThumbnailURL = metaContent(`meta[property="og:image"]`)
	meta.Channel, _ = doc.Find(`span[itemprop="author"] link[itemprop="name"]`).First().Attr("content")

	if d := metaContent(`meta[itemprop="duration"]`); d != "" {
		meta.Duration = parseISODuration(d)
	}
	if v := metaContent(`meta[itemprop="interactionCount"]`); v != "" {
		meta.ViewCount, _ = strconv.ParseInt(v, 10, 64)
	}

	if meta.Title == "" && meta.Duration == 0 {
		return nil, fmt.Errorf("no metadata in watch page")
	}
	return meta, nil
}

// parseISODuration handles the PT#H#M#S subset YouTube emits.
func parseISODuration(s string) time.Duration {
	s = strings.TrimPrefix(s, "PT")
	var d time.Duration
	num := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			num = num*10 + int(c-'0')
		case c == 'H':
			d += time.Duration(num) * time.Hour
			num = 0
		case c == 'M':
			d += time.Duration(num) * time.Minute
			num = 0
		case c == 'S':
			d += time.Duration(num) * time.Second
			num = 0
		default:
			return 0
		}
	}
	return d
}
