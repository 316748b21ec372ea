// Package config loads jsxusage settings from a project file. Values from
// the file override DefaultConfig; CLI flags override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gnana997/jsxusage/pkg/parser"
)

// Config is the full settings tree.
type Config struct {
	Project ProjectConfig `koanf:"project" yaml:"project"`
	Scan    ScanConfig    `koanf:"scan" yaml:"scan"`
	Output  OutputConfig  `koanf:"output" yaml:"output"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
	Watch   WatchConfig   `koanf:"watch" yaml:"watch"`
	MCP     MCPConfig     `koanf:"mcp" yaml:"mcp"`
}

// ProjectConfig locates the project.
type ProjectConfig struct {
	TSConfig   string   `koanf:"tsconfig" yaml:"tsconfig"`
	Extensions []string `koanf:"extensions" yaml:"extensions"`
}

// ScanConfig controls traversal and workers.
type ScanConfig struct {
	Parallel          int      `koanf:"parallel" yaml:"parallel"`
	MaxChunkSize      int      `koanf:"max_chunk_size" yaml:"max_chunk_size"`
	WorkerMode        string   `koanf:"worker_mode" yaml:"worker_mode"` // process, inprocess
	BuiltinNamespaces []string `koanf:"builtin_namespaces" yaml:"builtin_namespaces"`
	IncludeBuiltins   bool     `koanf:"include_builtins" yaml:"include_builtins"`
}

// OutputConfig selects how the report is written.
type OutputConfig struct {
	Formatter string `koanf:"formatter" yaml:"formatter"`
	Format    string `koanf:"format" yaml:"format"` // json, table
	Path      string `koanf:"path" yaml:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

type WatchConfig struct {
	DebounceMs int `koanf:"debounce_ms" yaml:"debounce_ms"`
}

type MCPConfig struct {
	// LogPath enables JSONL tool-call logging when set.
	LogPath string `koanf:"log_path" yaml:"log_path"`
}

// Worker modes.
const (
	WorkerModeProcess   = "process"
	WorkerModeInProcess = "inprocess"
)

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			TSConfig:   "./tsconfig.json",
			Extensions: []string{".tsx"},
		},
		Scan: ScanConfig{
			Parallel:          4,
			MaxChunkSize:      250,
			WorkerMode:        WorkerModeProcess,
			BuiltinNamespaces: []string{"React"},
			IncludeBuiltins:   true,
		},
		Output: OutputConfig{
			Formatter: "raw",
			Format:    "json",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Watch: WatchConfig{
			DebounceMs: 200,
		},
	}
}

// Load reads path over the defaults. The parser is chosen by extension;
// unknown extensions are read as YAML.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = yaml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	// Decoding merges lists into the defaults; a list in the file replaces
	// them, and an empty one clears them.
	for key, dst := range map[string]*[]string{
		"project.extensions":      &cfg.Project.Extensions,
		"scan.builtin_namespaces": &cfg.Scan.BuiltinNamespaces,
	} {
		if k.Exists(key) {
			*dst = k.Strings(key)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// FileNames are the names searched by Find, in order.
var FileNames = []string{
	"jsxusage.yaml",
	"jsxusage.yml",
	"jsxusage.toml",
	"jsxusage.json",
	".jsxusage.yaml",
	".jsxusage.yml",
	".jsxusage.toml",
	".jsxusage.json",
}

// SearchDirs are searched by Find relative to the working directory.
var SearchDirs = []string{".", ".jsxusage"}

// Find returns the first config file in the search locations under dir,
// or "" when there is none.
func Find(dir string) string {
	for _, sub := range SearchDirs {
		for _, name := range FileNames {
			path := filepath.Join(dir, sub, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads the first config file found under the working
// directory, or returns the defaults. A file that exists but fails to load
// is an error. The second result is the path that was loaded.
func LoadOrDefault() (*Config, string, error) {
	path := Find(".")
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Validate rejects values the tool cannot act on.
func (c *Config) Validate() error {
	switch c.Scan.WorkerMode {
	case WorkerModeProcess, WorkerModeInProcess:
	default:
		return fmt.Errorf("scan.worker_mode must be %q or %q, got %q", WorkerModeProcess, WorkerModeInProcess, c.Scan.WorkerMode)
	}
	if c.Scan.Parallel < 0 {
		return fmt.Errorf("scan.parallel must not be negative")
	}
	if c.Scan.MaxChunkSize < 0 {
		return fmt.Errorf("scan.max_chunk_size must not be negative")
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative")
	}
	supported := parser.SupportedExtensions()
	for _, ext := range c.Project.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("project.extensions entries must start with a dot, got %q", ext)
		}
		if !slices.Contains(supported, strings.ToLower(ext)) {
			return fmt.Errorf("project.extensions entry %q cannot be parsed (supported: %s)", ext, strings.Join(supported, ", "))
		}
	}
	return nil
}
