// Package sources fetches transcripts and metadata from YouTube.
//
// The YouTube implementation is split across three files by responsibility:
//
//	youtube_innertube.go  — Innertube API types, constants, and low-level HTTP primitives
//	youtube_transcript.go — transcript fetching (watch-page scrape + ANDROID player fallback)
//	youtube_metadata.go   — best-effort video metadata (oEmbed + watch-page og: tags)
package sources
