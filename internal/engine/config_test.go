package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		MaxSummaryLength:    1200,
		MinSummaryLength:    100,
		MaxTranscriptLength: 120000,
		MinTranscriptLength: 40,
		ChunkMaxChars:       2800,
		CompressionRatio:    0.3,
		MaxKeywords:         10,
		MaxKeyPoints:        5,
		CacheEnabled:        true,
		CacheTTL:            24 * time.Hour,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero max transcript", func(c *Config) { c.MaxTranscriptLength = 0 }, false},
		{"min over max transcript", func(c *Config) { c.MinTranscriptLength = c.MaxTranscriptLength + 1 }, false},
		{"cache enabled without ttl", func(c *Config) { c.CacheTTL = 0 }, false},
		{"cache disabled without ttl", func(c *Config) { c.CacheEnabled = false; c.CacheTTL = 0 }, true},
		{"negative rate limit", func(c *Config) { c.RateLimitRPS = -1 }, false},
		{"zero chunk size", func(c *Config) { c.ChunkMaxChars = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !errors.Is(err, ErrConfig) {
					t.Errorf("error %v does not wrap ErrConfig", err)
				}
			}
		})
	}
}

func TestInitInstallsOptions(t *testing.T) {
	c := validConfig()
	c.MaxSummaryLength = 900
	if err := Init(c); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := Options().MaxSummaryLength; got != 900 {
		t.Errorf("Options().MaxSummaryLength = %d, want 900", got)
	}
}

func TestSetOptionsRejectsInvalid(t *testing.T) {
	if err := Init(validConfig()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	bad := Options()
	bad.ChunkMaxChars = -1
	if err := SetOptions(bad); err == nil {
		t.Fatal("SetOptions accepted invalid options")
	}
	if got := Options().ChunkMaxChars; got != 2800 {
		t.Errorf("options changed after rejected set: ChunkMaxChars = %d", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Run("missing file is empty config", func(t *testing.T) {
		fc, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("LoadConfigFile: %v", err)
		}
		if got := Or(fc.Summary.MaxLength, 1200); got != 1200 {
			t.Errorf("fallback = %d, want 1200", got)
		}
	})

	t.Run("set keys override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "recap.yaml")
		data := "summary:\n  max_length: 800\nkeywords:\n  max: 7\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		fc, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile: %v", err)
		}
		if got := Or(fc.Summary.MaxLength, 1200); got != 800 {
			t.Errorf("summary.max_length = %d, want 800", got)
		}
		if got := Or(fc.Summary.MinLength, 100); got != 100 {
			t.Errorf("unset key should fall back, got %d", got)
		}
		if got := Or(fc.Keywords.Max, 10); got != 7 {
			t.Errorf("keywords.max = %d, want 7", got)
		}
	})

	t.Run("malformed yaml is a config error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("summary: [unclosed"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfigFile(path)
		if !errors.Is(err, ErrConfig) {
			t.Errorf("expected ErrConfig, got %v", err)
		}
	})
}

func TestReloadOptions(t *testing.T) {
	if err := Init(validConfig()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	path := filepath.Join(t.TempDir(), "recap.yaml")
	if err := os.WriteFile(path, []byte("summary:\n  max_length: 600\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloadOptions(path)

	opts := Options()
	if opts.MaxSummaryLength != 600 {
		t.Errorf("MaxSummaryLength = %d, want 600", opts.MaxSummaryLength)
	}
	if opts.ChunkMaxChars != 2800 {
		t.Errorf("untouched option changed: ChunkMaxChars = %d", opts.ChunkMaxChars)
	}
}
