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

// Config holds all configuration options for knitgraph.
type Config struct {
	// Extraction settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// DI syntax recognised by the extractor
	Knit KnitConfig `koanf:"knit" toml:"knit"`

	// Graph analysis limits
	Graph GraphConfig `koanf:"graph" toml:"graph"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// AnalysisConfig controls the extraction run.
type AnalysisConfig struct {
	Workers     int    `koanf:"workers" toml:"workers"` // 0 = 2x NumCPU
	Dedup       string `koanf:"dedup" toml:"dedup"`     // meaning, location
	MaxFileSize int64  `koanf:"max_file_size" toml:"max_file_size"`
	MaxFiles    int    `koanf:"max_files" toml:"max_files"`
}

// KnitConfig names the annotation, delegate and wrapper types to look for.
type KnitConfig struct {
	Annotation string   `koanf:"annotation" toml:"annotation"`
	Delegate   string   `koanf:"delegate" toml:"delegate"`
	Wrappers   []string `koanf:"wrappers" toml:"wrappers"`
}

// GraphConfig bounds the graph analysis engine.
type GraphConfig struct {
	CriticalMaxNodes int `koanf:"critical_max_nodes" toml:"critical_max_nodes"`
	CriticalMaxDepth int `koanf:"critical_max_depth" toml:"critical_max_depth"`
	TopHeaviest      int `koanf:"top_heaviest" toml:"top_heaviest"`
	TopCritical      int `koanf:"top_critical" toml:"top_critical"`
	TopPaths         int `koanf:"top_paths" toml:"top_paths"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml, mermaid
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

var (
	validDedup   = []string{"meaning", "location"}
	validFormats = []string{"text", "json", "markdown", "toon", "yaml", "mermaid"}
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Workers:     0,
			Dedup:       "meaning",
			MaxFileSize: 0,
			MaxFiles:    0,
		},
		Knit: KnitConfig{
			Annotation: "Provides",
			Delegate:   "di",
			Wrappers:   []string{"Loadable", "knit.Loadable"},
		},
		Graph: GraphConfig{
			CriticalMaxNodes: 500,
			CriticalMaxDepth: 10,
			TopHeaviest:      5,
			TopCritical:      5,
			TopPaths:         3,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{},
			Dirs: []string{
				"build",
				".gradle",
				".idea",
				"out",
				".git",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	return cfg, nil
}

// configNames are the file names searched by Find, in priority order.
var configNames = []string{
	"knitgraph.toml",
	"knitgraph.yaml",
	"knitgraph.yml",
	"knitgraph.json",
	".knitgraph.toml",
	".knitgraph.yaml",
	".knitgraph.yml",
	".knitgraph.json",
}

// Find returns the first config file found under root or root/.knitgraph,
// or "" when there is none.
func Find(root string) string {
	for _, dir := range []string{root, filepath.Join(root, ".knitgraph")} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// Resolve loads the explicit path when given, otherwise the first config
// found in the current directory. It returns the config and the file it came
// from ("" for defaults).
func Resolve(path string) (*Config, string, error) {
	if path == "" {
		path = Find(".")
	}
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := Find("."); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// Validate reports every invalid value in the config.
func (c *Config) Validate() error {
	var errs []error

	if !contains(validDedup, c.Analysis.Dedup) {
		errs = append(errs, fmt.Errorf("analysis.dedup: unknown mode %q (want one of %s)", c.Analysis.Dedup, strings.Join(validDedup, ", ")))
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers: must be >= 0, got %d", c.Analysis.Workers))
	}
	if c.Analysis.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_file_size: must be >= 0, got %d", c.Analysis.MaxFileSize))
	}
	if c.Analysis.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_files: must be >= 0, got %d", c.Analysis.MaxFiles))
	}

	if strings.TrimSpace(c.Knit.Annotation) == "" || strings.HasPrefix(c.Knit.Annotation, "@") {
		errs = append(errs, fmt.Errorf("knit.annotation: must be a bare name without '@', got %q", c.Knit.Annotation))
	}
	if strings.TrimSpace(c.Knit.Delegate) == "" {
		errs = append(errs, errors.New("knit.delegate: must not be empty"))
	}

	limits := map[string]int{
		"graph.critical_max_nodes": c.Graph.CriticalMaxNodes,
		"graph.critical_max_depth": c.Graph.CriticalMaxDepth,
		"graph.top_heaviest":       c.Graph.TopHeaviest,
		"graph.top_critical":       c.Graph.TopCritical,
		"graph.top_paths":          c.Graph.TopPaths,
	}
	for _, key := range []string{"graph.critical_max_nodes", "graph.critical_max_depth", "graph.top_heaviest", "graph.top_critical", "graph.top_paths"} {
		if limits[key] < 0 {
			errs = append(errs, fmt.Errorf("%s: must be >= 0, got %d", key, limits[key]))
		}
	}

	for _, pattern := range c.Exclude.Patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("exclude.patterns: invalid pattern %q: %w", pattern, err))
		}
	}

	if !contains(validFormats, c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format: unknown format %q (want one of %s)", c.Output.Format, strings.Join(validFormats, ", ")))
	}

	return errors.Join(errs...)
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	sep := string(filepath.Separator)
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, sep+dir+sep) || strings.HasPrefix(path, dir+sep) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.ToSlash(path)); matched {
			return true
		}
	}

	return false
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
