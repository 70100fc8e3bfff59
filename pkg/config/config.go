package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration options for linkage.
type Config struct {
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`
	Cache    CacheConfig    `koanf:"cache" toml:"cache"`
	Output   OutputConfig   `koanf:"output" toml:"output"`
	Log      LogConfig      `koanf:"log" toml:"log"`
}

// AnalysisConfig bounds the fixpoint computations.
type AnalysisConfig struct {
	MaxSCCIterations  int `koanf:"max_scc_iterations" toml:"max_scc_iterations"`
	MaxLoopIterations int `koanf:"max_loop_iterations" toml:"max_loop_iterations"`

	// Workers is the wave pool size; 0 means twice the CPU count.
	Workers int `koanf:"workers" toml:"workers"`

	AllowArrayOfTypeParameter bool `koanf:"allow_array_of_type_parameter" toml:"allow_array_of_type_parameter"`
}

// CacheConfig controls the summary memo and the shortest-path cache.
type CacheConfig struct {
	Enabled    bool   `koanf:"enabled" toml:"enabled"`
	Dir        string `koanf:"dir" toml:"dir"`
	TTL        int    `koanf:"ttl" toml:"ttl"` // TTL in hours
	GraphCache bool   `koanf:"graph_cache" toml:"graph_cache"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `koanf:"level" toml:"level"`   // debug, info, warn, error
	Format string `koanf:"format" toml:"format"` // text, json
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxSCCIterations:          10,
			MaxLoopIterations:         5,
			AllowArrayOfTypeParameter: true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Dir:        ".linkage/cache",
			TTL:        24,
			GraphCache: true,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Names lists the config file names LoadOrDefault looks for, in order.
var Names = []string{
	"linkage.toml",
	"linkage.yaml",
	"linkage.yml",
	"linkage.json",
	".linkage.toml",
	".linkage.yaml",
	".linkage.yml",
	".linkage.json",
}

// Find returns the first config file found in dir or dir/.linkage.
func Find(dir string) (string, bool) {
	for _, d := range []string{dir, filepath.Join(dir, ".linkage")} {
		for _, name := range Names {
			path := filepath.Join(d, name)
			if _, err := os.Stat(path); err == nil {
				return path, true
			}
		}
	}
	return "", false
}

// LoadOrDefault loads the config found in the working directory, falling
// back to the defaults when there is none or it does not parse.
func LoadOrDefault() *Config {
	if path, ok := Find("."); ok {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	if c.Analysis.MaxSCCIterations < 1 {
		bad("analysis.max_scc_iterations must be positive, got %d", c.Analysis.MaxSCCIterations)
	}
	if c.Analysis.MaxLoopIterations < 1 {
		bad("analysis.max_loop_iterations must be positive, got %d", c.Analysis.MaxLoopIterations)
	}
	if c.Analysis.Workers < 0 {
		bad("analysis.workers must not be negative, got %d", c.Analysis.Workers)
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		bad("cache.dir is required when the cache is enabled")
	}
	if c.Cache.TTL < 0 {
		bad("cache.ttl must not be negative, got %d", c.Cache.TTL)
	}
	switch c.Output.Format {
	case "text", "json", "markdown", "toon":
	default:
		bad("output.format %q is not one of text, json, markdown, toon", c.Output.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		bad("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		bad("log.format %q is not one of text, json", c.Log.Format)
	}
	return errors.Join(errs...)
}
