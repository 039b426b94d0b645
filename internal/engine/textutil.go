package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/strutil"
)

// User-Agent strings used across HTTP clients. The Chrome one is what the
// innertube ANDROID client pairs with; the bot one identifies us honestly
// on the oEmbed endpoint.
const (
	UserAgentBot    = "GoRecap/1.0"
	UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// wordsPerMinute for reading-time estimates. Average adult silent reading.
const wordsPerMinute = 200

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// TruncateAtWord truncates a string to maxLen runes at a word boundary.
func TruncateAtWord(s string, maxLen int) string {
	return strutil.TruncateAtWord(s, maxLen)
}

// FormatVideoDuration renders seconds as m:ss or h:mm:ss.
func FormatVideoDuration(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ReadingTimeMinutes estimates minutes to read text, minimum 1 for any
// non-empty text.
func ReadingTimeMinutes(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// CompressionPct reports summary size as a percentage of transcript size,
// rounded to one decimal.
func CompressionPct(transcriptChars, summaryChars int) float64 {
	if transcriptChars <= 0 {
		return 0
	}
	pct := float64(summaryChars) / float64(transcriptChars) * 100
	return float64(int(pct*10+0.5)) / 10
}
