package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions are scanned when no extensions are configured.
var DefaultExtensions = []string{".tsx"}

// Wildcard includes never descend into package directories.
var packageDirs = map[string]bool{
	"node_modules":     true,
	"bower_components": true,
	"jspm_packages":    true,
}

// Files returns the sorted absolute paths covered by the manifest whose
// names end in one of extensions. Explicit files entries are kept even when
// an exclude pattern matches them.
func (m *Manifest) Files(extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	include, err := m.relPatterns(m.includePatterns())
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	exclude, err := m.relPatterns(m.Exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] && hasExtension(path, extensions) {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, f := range m.FileList {
		if isFile(f) {
			add(f)
		}
	}

	if len(include) > 0 {
		err = filepath.WalkDir(m.Root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // Continue walking on errors.
			}

			relPath := m.Rel(path)
			if relPath == "." {
				return nil
			}

			if d.IsDir() && packageDirs[d.Name()] {
				return filepath.SkipDir
			}

			// Check exclusions (directories and files).
			if matchAny(exclude, relPath) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				return nil
			}

			if matchAny(include, relPath) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// includePatterns applies tsconfig defaults: no include and no files means
// everything; a bare directory means everything below it.
func (m *Manifest) includePatterns() []string {
	if !m.hasInclude {
		if len(m.FileList) > 0 {
			return nil
		}
		return []string{filepath.Join(m.Root, "**", "*")}
	}

	out := make([]string, 0, len(m.Include))
	for _, p := range m.Include {
		if !hasMeta(p) {
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				p = filepath.Join(p, "**", "*")
			}
		}
		out = append(out, p)
	}
	return out
}

// relPatterns rewrites absolute patterns relative to the root so they can
// be matched against root-relative paths.
func (m *Manifest) relPatterns(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		rel, err := filepath.Rel(m.Root, p)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(rel)
		if !doublestar.ValidatePattern(rel) {
			return nil, fmt.Errorf("%s", rel)
		}
		out = append(out, rel)
	}
	return out, nil
}

func matchAny(patterns []string, relPath string) bool {
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

func hasExtension(path string, extensions []string) bool {
	lower := strings.ToLower(path)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
