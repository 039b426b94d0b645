package sources

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_recap/internal/engine"
)

// youtubeHosts are the hostnames we accept for watch URLs.
var youtubeHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
	"youtu.be":                 true,
}

// ExtractVideoID parses any of the usual YouTube URL shapes and returns the
// 11-character video ID:
//
//	youtube.com/watch?v=ID
//	youtu.be/ID
//	youtube.com/embed/ID
//	youtube.com/v/ID
//	youtube.com/shorts/ID
//	youtube.com/live/ID
//
// A bare 11-character ID is accepted as-is. Everything else is ErrInvalidURL.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", engine.ErrInvalidURL)
	}

	if isVideoID(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", engine.ErrInvalidURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if !youtubeHosts[host] {
		return "", fmt.Errorf("%w: not a youtube host: %s", engine.ErrInvalidURL, host)
	}

	if host == "youtu.be" {
		id := strings.Trim(u.Path, "/")
		if i := strings.IndexByte(id, '/'); i >= 0 {
			id = id[:i]
		}
		if isVideoID(id) {
			return id, nil
		}
		return "", fmt.Errorf("%w: no video id in %s", engine.ErrInvalidURL, raw)
	}

	if id := u.Query().Get("v"); isVideoID(id) {
		return id, nil
	}

	for _, prefix := range []string{"/embed/", "/v/", "/shorts/", "/live/"} {
		if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i]
			}
			if isVideoID(rest) {
				return rest, nil
			}
		}
	}

	return "", fmt.Errorf("%w: no video id in %s", engine.ErrInvalidURL, raw)
}

// isVideoID reports whether s looks like a YouTube video ID: exactly 11
// characters from the base64url alphabet.
func isVideoID(s string) bool {
	if len(s) != 11 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
