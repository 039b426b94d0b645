// Package recapserver exposes the summarize pipeline as MCP tools, so LLM
// agents can pull video summaries directly.
package recapserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_recap/internal/engine"
	"github.com/anatolykoptev/go_recap/internal/engine/sources"
	"github.com/anatolykoptev/go_recap/internal/engine/videos"
)

// RegisterTools registers the video tools on the given MCP server:
// video_summarize and video_info.
func RegisterTools(server *mcp.Server) {
	registerVideoSummarize(server)
	registerVideoInfo(server)
}

func registerVideoSummarize(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_summarize",
		Description: "Summarize a YouTube video from its URL. Returns a structured summary with content type (tutorial/review/educational/other), key points, keywords, and video metadata. Results are cached.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.SummarizeRequest) (*mcp.CallToolResult, engine.SummarizeResult, error) {
		if input.URL == "" {
			return nil, engine.SummarizeResult{}, fmt.Errorf("url is required")
		}
		out, err := videos.Summarize(ctx, input)
		if err != nil {
			return nil, engine.SummarizeResult{}, err
		}
		return nil, out, nil
	})
}

type videoInfoInput struct {
	URL string `json:"url"`
}

func registerVideoInfo(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_info",
		Description: "Fetch metadata for a YouTube video (title, channel, duration, view count, thumbnail) without summarizing it.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input videoInfoInput) (*mcp.CallToolResult, engine.VideoInfo, error) {
		videoID, err := sources.ExtractVideoID(input.URL)
		if err != nil {
			return nil, engine.VideoInfo{}, err
		}
		info, err := sources.FetchMetadata(ctx, videoID)
		if err != nil {
			return nil, engine.VideoInfo{}, err
		}
		return nil, info, nil
	})
}
