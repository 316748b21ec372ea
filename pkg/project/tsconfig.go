// Package project loads a tsconfig.json and enumerates the source files it
// covers.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Manifest is a tsconfig with its extends chain applied. All paths are
// absolute.
type Manifest struct {
	// Path is the tsconfig file that was loaded.
	Path string
	// Root is the directory holding Path. Report locations are relative to it.
	Root string

	// BaseURL is empty when no config in the chain sets baseUrl.
	BaseURL string
	// Paths maps compilerOptions.paths patterns to their substitutions.
	Paths map[string][]string
	// PathsBase is the directory Paths substitutions are relative to: BaseURL
	// when set, otherwise the directory of the config declaring paths.
	PathsBase string
	OutDir    string

	// FileList holds the absolute paths of the explicit "files" entries.
	FileList []string
	Include  []string
	Exclude  []string

	// hasInclude records whether any config declared include; an explicit
	// files list without include scans only those files.
	hasInclude bool
}

type rawCompilerOptions struct {
	BaseURL *string             `json:"baseUrl"`
	Paths   map[string][]string `json:"paths"`
	OutDir  *string             `json:"outDir"`
}

type rawConfig struct {
	Extends         json.RawMessage    `json:"extends"`
	CompilerOptions rawCompilerOptions `json:"compilerOptions"`
	Files           *[]string          `json:"files"`
	Include         *[]string          `json:"include"`
	Exclude         *[]string          `json:"exclude"`
}

// Load reads the tsconfig at path and every config it extends. Comments and
// trailing commas are accepted.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tsconfig path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("tsconfig not found: %w", err)
	}
	if info.IsDir() {
		abs = filepath.Join(abs, "tsconfig.json")
	}

	m := &Manifest{
		Path: abs,
		Root: filepath.Dir(abs),
	}
	if err := m.apply(abs, make(map[string]bool)); err != nil {
		return nil, err
	}

	if m.BaseURL != "" {
		m.PathsBase = m.BaseURL
	}
	if m.PathsBase == "" {
		m.PathsBase = m.Root
	}
	if len(m.Exclude) == 0 {
		m.Exclude = defaultExcludes(m)
	}

	return m, nil
}

// apply loads configPath's base first, then overlays configPath itself.
func (m *Manifest) apply(configPath string, seen map[string]bool) error {
	if seen[configPath] {
		return fmt.Errorf("tsconfig extends cycle at %s", configPath)
	}
	seen[configPath] = true

	cfg, err := readConfig(configPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(configPath)

	bases, err := extendsList(cfg.Extends)
	if err != nil {
		return fmt.Errorf("invalid extends in %s: %w", configPath, err)
	}
	for _, base := range bases {
		basePath, err := resolveExtends(base, dir)
		if err != nil {
			return fmt.Errorf("%s: %w", configPath, err)
		}
		if err := m.apply(basePath, seen); err != nil {
			return err
		}
	}

	opts := cfg.CompilerOptions
	if opts.BaseURL != nil {
		m.BaseURL = absFrom(dir, *opts.BaseURL)
	}
	if opts.Paths != nil {
		m.Paths = opts.Paths
		m.PathsBase = dir
	}
	if opts.OutDir != nil {
		m.OutDir = absFrom(dir, *opts.OutDir)
	}
	if cfg.Files != nil {
		m.FileList = absAll(dir, *cfg.Files)
	}
	if cfg.Include != nil {
		m.Include = absAll(dir, *cfg.Include)
		m.hasInclude = true
	}
	if cfg.Exclude != nil {
		m.Exclude = absAll(dir, *cfg.Exclude)
	}

	return nil
}

func readConfig(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tsconfig: %w", err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var cfg rawConfig
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &cfg, nil
}

// extendsList accepts the string and array forms of extends.
func extendsList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

// resolveExtends finds the file an extends entry points at. Relative and
// absolute entries are files; anything else is looked up as a package in
// node_modules.
func resolveExtends(spec, fromDir string) (string, error) {
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || filepath.IsAbs(spec) {
		p := absFrom(fromDir, spec)
		for _, candidate := range []string{p, p + ".json"} {
			if isFile(candidate) {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("extended tsconfig %q not found", spec)
	}

	for dir := fromDir; ; {
		base := filepath.Join(dir, "node_modules", filepath.FromSlash(spec))
		for _, candidate := range []string{base, base + ".json", filepath.Join(base, "tsconfig.json")} {
			if isFile(candidate) {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("extended tsconfig package %q not found", spec)
}

func defaultExcludes(m *Manifest) []string {
	excludes := []string{
		filepath.Join(m.Root, "node_modules"),
		filepath.Join(m.Root, "bower_components"),
		filepath.Join(m.Root, "jspm_packages"),
	}
	if m.OutDir != "" {
		excludes = append(excludes, m.OutDir)
	}
	return excludes
}

// Rel returns path relative to the project root, slash separated.
func (m *Manifest) Rel(path string) string {
	rel, err := filepath.Rel(m.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func absFrom(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, filepath.FromSlash(p))
}

func absAll(dir string, ps []string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = absFrom(dir, p)
	}
	return out
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
