package engine

import (
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "a summary", "a summary"},
		{"fenced", "```\na summary\n```", "a summary"},
		{"json fenced", "```json\na summary\n```", "a summary"},
		{"whitespace", "  a summary \n", "a summary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewSummarizerBackends(t *testing.T) {
	c := validConfig()
	c.LLMAPIKey = "k"

	t.Run("default backend is openai", func(t *testing.T) {
		s, err := NewSummarizer(c)
		if err != nil {
			t.Fatalf("NewSummarizer: %v", err)
		}
		if _, ok := s.(*llmSummarizer); !ok {
			t.Errorf("got %T, want *llmSummarizer", s)
		}
	})

	t.Run("gemini backend", func(t *testing.T) {
		g := c
		g.LLMBackend = "gemini"
		s, err := NewSummarizer(g)
		if err != nil {
			t.Fatalf("NewSummarizer: %v", err)
		}
		if _, ok := s.(*geminiSummarizer); !ok {
			t.Errorf("got %T, want *geminiSummarizer", s)
		}
	})

	t.Run("gemini requires key", func(t *testing.T) {
		g := c
		g.LLMBackend = "gemini"
		g.LLMAPIKey = ""
		if _, err := NewSummarizer(g); !errors.Is(err, ErrConfig) {
			t.Errorf("expected ErrConfig, got %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		u := c
		u.LLMBackend = "llama.cpp"
		if _, err := NewSummarizer(u); !errors.Is(err, ErrConfig) {
			t.Errorf("expected ErrConfig, got %v", err)
		}
	})
}

func TestGeminiKeyRotation(t *testing.T) {
	s := &geminiSummarizer{keys: []string{"a", "b", "c"}}
	if got := s.nextKey(false); got != "a" {
		t.Errorf("first key = %q, want a", got)
	}
	if got := s.nextKey(true); got != "b" {
		t.Errorf("after rotate = %q, want b", got)
	}
	s.nextKey(true)
	if got := s.nextKey(true); got != "a" {
		t.Errorf("rotation should wrap, got %q", got)
	}
}

func TestIsQuotaError(t *testing.T) {
	if !isQuotaError(errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")) {
		t.Error("quota error not detected")
	}
	if isQuotaError(errors.New("invalid request")) {
		t.Error("plain error misclassified as quota")
	}
}
