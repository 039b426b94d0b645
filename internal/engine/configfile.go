package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML config file. Every field is a pointer so
// an absent key falls through to the env/default value; set keys become the
// defaults that environment variables may still override.
type FileConfig struct {
	Summary struct {
		MaxLength        *int     `yaml:"max_length"`
		MinLength        *int     `yaml:"min_length"`
		ChunkMaxChars    *int     `yaml:"chunk_max_chars"`
		CompressionRatio *float64 `yaml:"compression_ratio"`
	} `yaml:"summary"`
	Keywords struct {
		Enabled   *bool `yaml:"enabled"`
		Max       *int  `yaml:"max"`
		KeyPoints *int  `yaml:"key_points"`
	} `yaml:"keywords"`
	Transcript struct {
		MaxLength *int `yaml:"max_length"`
		MinLength *int `yaml:"min_length"`
	} `yaml:"transcript"`
	Cache struct {
		Enabled       *bool `yaml:"enabled"`
		DurationHours *int  `yaml:"duration_hours"`
		MaxEntries    *int  `yaml:"max_entries"`
	} `yaml:"cache"`
}

// Or returns *p when p is set, def otherwise.
func Or[T any](p *T, def T) T {
	if p != nil {
		return *p
	}
	return def
}

// LoadConfigFile parses a YAML config file. A missing file is not an error:
// it returns an empty FileConfig so every lookup falls through to defaults.
func LoadConfigFile(path string) (*FileConfig, error) {
	fc := &FileConfig{}
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return nil, fmt.Errorf("%w: read config file: %v", ErrConfig, err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("%w: parse config file %s: %v", ErrConfig, path, err)
	}
	return fc, nil
}

// WatchConfigFile re-applies the runtime-tunable pipeline bounds whenever
// the config file changes. Only summary/keyword bounds are hot-reloadable;
// cache and backend settings need a restart. Blocks until ctx is done.
func WatchConfigFile(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// watches on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config watch %s: %w", path, err)
	}
	slog.Info("config: watching for changes", slog.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			reloadOptions(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config: watcher error", slog.Any("error", err))
		}
	}
}

// reloadOptions overlays the file's tunables onto the current options.
func reloadOptions(path string) {
	fc, err := LoadConfigFile(path)
	if err != nil {
		slog.Warn("config: reload failed, keeping previous options", slog.Any("error", err))
		return
	}
	opts := Options()
	opts.MaxSummaryLength = Or(fc.Summary.MaxLength, opts.MaxSummaryLength)
	opts.MinSummaryLength = Or(fc.Summary.MinLength, opts.MinSummaryLength)
	opts.ChunkMaxChars = Or(fc.Summary.ChunkMaxChars, opts.ChunkMaxChars)
	opts.CompressionRatio = Or(fc.Summary.CompressionRatio, opts.CompressionRatio)
	opts.MaxKeywords = Or(fc.Keywords.Max, opts.MaxKeywords)
	opts.MaxKeyPoints = Or(fc.Keywords.KeyPoints, opts.MaxKeyPoints)
	if err := SetOptions(opts); err != nil {
		slog.Warn("config: reloaded options invalid, keeping previous", slog.Any("error", err))
		return
	}
	slog.Info("config: options reloaded",
		slog.Int("max_summary_length", opts.MaxSummaryLength),
		slog.Int("chunk_max_chars", opts.ChunkMaxChars))
}
