package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
	"google.golang.org/genai"

	"github.com/anatolykoptev/go_recap/internal/engine/summary"
)

// summaryPrompt asks for prose only: fences, headings and preamble all get
// in the way of sentence-level composition downstream.
const summaryPrompt = `Summarize the following video transcript excerpt in about %d characters.

Rules:
- Plain prose, complete sentences. No markdown, no headings, no bullet lists.
- No preamble like "This video" or "The speaker" unless natural.
- Keep concrete facts: names, numbers, steps, conclusions.
- Do not invent anything that is not in the excerpt.

Excerpt:
---
%s
---`

// stripFences removes markdown code fences that some models wrap output in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// NewSummarizer builds the inference backend selected by c.LLMBackend:
// "openai" talks to any OpenAI-compatible API through go-kit/llm, "gemini"
// talks to the Gemini API directly with key rotation on quota errors.
func NewSummarizer(c Config) (summary.Summarizer, error) {
	switch c.LLMBackend {
	case "", "openai":
		client := llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
		return &llmSummarizer{client: client, temperature: c.LLMTemperature, maxTokens: c.LLMMaxTokens}, nil
	case "gemini":
		keys := append([]string{c.LLMAPIKey}, c.LLMAPIKeyFallbacks...)
		if keys[0] == "" {
			return nil, fmt.Errorf("%w: gemini backend needs LLM_API_KEY", ErrConfig)
		}
		return &geminiSummarizer{keys: keys, model: c.LLMModel}, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm backend %q", ErrConfig, c.LLMBackend)
	}
}

// llmSummarizer runs inference against an OpenAI-compatible chat API.
type llmSummarizer struct {
	client      *llm.Client
	temperature float64
	maxTokens   int
}

func (s *llmSummarizer) Infer(ctx context.Context, text string, targetLen int) (string, error) {
	IncrInferenceCalls()
	prompt := fmt.Sprintf(summaryPrompt, targetLen, text)
	raw, err := s.client.Complete(ctx, "", prompt,
		llm.WithChatTemperature(s.temperature),
		llm.WithChatMaxTokens(s.maxTokens),
	)
	if err != nil {
		IncrInferenceErrors()
		return "", &InferenceError{Backend: "openai", Err: err}
	}
	out := stripFences(raw)
	if out == "" {
		IncrInferenceErrors()
		return "", &InferenceError{Backend: "openai", Err: fmt.Errorf("empty completion")}
	}
	return out, nil
}

// geminiSummarizer calls the Gemini API directly. Rotates API keys on
// 429 / quota errors so a free-tier key pool survives bursts.
type geminiSummarizer struct {
	keys  []string
	model string

	mu      sync.Mutex
	current int
}

func (s *geminiSummarizer) Infer(ctx context.Context, text string, targetLen int) (string, error) {
	IncrInferenceCalls()
	prompt := fmt.Sprintf(summaryPrompt, targetLen, text)

	var lastErr error
	for range s.keys {
		key := s.nextKey(false)

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = err
			s.nextKey(true)
			continue
		}

		result, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
		if err != nil {
			if isQuotaError(err) {
				slog.Warn("gemini: key rate limited, rotating", slog.Any("error", err))
				lastErr = err
				s.nextKey(true)
				continue
			}
			IncrInferenceErrors()
			return "", &InferenceError{Backend: "gemini", Err: err}
		}

		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			var sb strings.Builder
			for _, part := range result.Candidates[0].Content.Parts {
				if part.Text != "" {
					sb.WriteString(part.Text)
				}
			}
			if out := stripFences(sb.String()); out != "" {
				return out, nil
			}
		}
		IncrInferenceErrors()
		return "", &InferenceError{Backend: "gemini", Err: fmt.Errorf("empty response")}
	}

	IncrInferenceErrors()
	return "", &InferenceError{Backend: "gemini", Err: fmt.Errorf("all API keys exhausted: %w", lastErr)}
}

// nextKey returns the current key, advancing first when rotate is set.
func (s *geminiSummarizer) nextKey(rotate bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rotate {
		s.current = (s.current + 1) % len(s.keys)
	}
	return s.keys[s.current]
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
