package resolver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/jsxusage/pkg/project"
	"github.com/gnana997/jsxusage/pkg/report"
)

// ModuleKind is the variant of a ModuleResolution.
type ModuleKind int

const (
	ResolvedLocal ModuleKind = iota
	ResolvedExternal
	Unresolvable
)

func (k ModuleKind) String() string {
	switch k {
	case ResolvedLocal:
		return "local"
	case ResolvedExternal:
		return "external"
	case Unresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

// ModuleResolution is the outcome of following one import specifier.
type ModuleResolution struct {
	Kind      ModuleKind
	Specifier string
	// AbsPath and RelPath are set for ResolvedLocal. RelPath is relative to
	// the project root and slash separated.
	AbsPath string
	RelPath string
}

// Origin converts the resolution into a report origin. External and
// unresolvable imports keep the specifier as written.
func (m ModuleResolution) Origin() report.Origin {
	switch m.Kind {
	case ResolvedLocal:
		return report.LocalFile(m.RelPath)
	case ResolvedExternal:
		return report.ExternalPackage(m.Specifier)
	default:
		return report.Unresolved(m.Specifier)
	}
}

// DefaultModuleCacheSize bounds the (directory, specifier) memo.
const DefaultModuleCacheSize = 8192

// probeExtensions are tried in order after the exact path.
var probeExtensions = []string{".tsx", ".ts", ".d.ts", ".jsx", ".js", ".mjs", ".cjs"}

// ModuleOptions configures a ModuleResolver.
type ModuleOptions struct {
	CacheSize int
	Logger    *slog.Logger
}

// ModuleResolver follows import specifiers the way the TypeScript compiler
// does in bundler mode: relative paths, tsconfig paths, baseUrl, then
// node_modules. Safe for concurrent use.
type ModuleResolver struct {
	manifest *project.Manifest
	cache    *lru.Cache[string, ModuleResolution]
	packages *lru.Cache[string, *packageJSON]
	logger   *slog.Logger
}

// NewModuleResolver creates a resolver for the manifest's project.
func NewModuleResolver(m *project.Manifest, opts ModuleOptions) (*ModuleResolver, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultModuleCacheSize
	}

	cache, err := lru.New[string, ModuleResolution](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution cache: %w", err)
	}
	packages, err := lru.New[string, *packageJSON](max(opts.CacheSize/8, 64))
	if err != nil {
		return nil, fmt.Errorf("failed to create package.json cache: %w", err)
	}

	return &ModuleResolver{
		manifest: m,
		cache:    cache,
		packages: packages,
		logger:   opts.Logger,
	}, nil
}

// Resolve follows specifier as imported from the file fromFile.
func (r *ModuleResolver) Resolve(specifier, fromFile string) ModuleResolution {
	fromDir := filepath.Dir(fromFile)
	key := fromDir + "\x00" + specifier

	if res, ok := r.cache.Get(key); ok {
		return res
	}

	res := r.resolve(specifier, fromDir)
	r.cache.Add(key, res)

	if res.Kind == Unresolvable {
		r.logger.Debug("unresolvable import", "specifier", specifier, "from", fromFile)
	}
	return res
}

// Invalidate drops every memoised resolution. Watch mode calls it when files
// are created or removed, since probing results depend on what exists.
func (r *ModuleResolver) Invalidate() {
	r.cache.Purge()
	r.packages.Purge()
}

func (r *ModuleResolver) resolve(specifier, fromDir string) ModuleResolution {
	if path, ok := r.lookup(specifier, fromDir); ok {
		return r.classify(specifier, path)
	}
	return ModuleResolution{Kind: Unresolvable, Specifier: specifier}
}

func (r *ModuleResolver) lookup(specifier, fromDir string) (string, bool) {
	if isRelative(specifier) || filepath.IsAbs(specifier) {
		target := specifier
		if !filepath.IsAbs(target) {
			target = filepath.Join(fromDir, filepath.FromSlash(specifier))
		}
		return r.probe(target)
	}

	if path, ok := r.lookupPaths(specifier); ok {
		return path, true
	}

	if r.manifest.BaseURL != "" {
		if path, ok := r.probe(filepath.Join(r.manifest.BaseURL, filepath.FromSlash(specifier))); ok {
			return path, true
		}
	}

	return r.lookupNodeModules(specifier, fromDir)
}

// classify turns a found file into local or external. Anything inside a
// node_modules directory is external and keyed by the original specifier.
func (r *ModuleResolver) classify(specifier, path string) ModuleResolution {
	slashed := filepath.ToSlash(path)
	if strings.Contains(slashed, "/node_modules/") {
		return ModuleResolution{Kind: ResolvedExternal, Specifier: specifier}
	}

	return ModuleResolution{
		Kind:      ResolvedLocal,
		Specifier: specifier,
		AbsPath:   path,
		RelPath:   r.manifest.Rel(path),
	}
}

// lookupPaths applies compilerOptions.paths: an exact pattern beats any
// wildcard, otherwise the wildcard with the longest prefix wins.
func (r *ModuleResolver) lookupPaths(specifier string) (string, bool) {
	var (
		best     string
		bestLen  = -1
		captured string
	)
	for pattern := range r.manifest.Paths {
		star := strings.IndexByte(pattern, '*')
		if star < 0 {
			if pattern == specifier {
				best, captured = pattern, ""
				break
			}
			continue
		}

		prefix, suffix := pattern[:star], pattern[star+1:]
		if len(specifier) < len(prefix)+len(suffix) ||
			!strings.HasPrefix(specifier, prefix) || !strings.HasSuffix(specifier, suffix) {
			continue
		}
		if len(prefix) > bestLen || (len(prefix) == bestLen && pattern < best) {
			best, bestLen = pattern, len(prefix)
			captured = specifier[len(prefix) : len(specifier)-len(suffix)]
		}
	}

	if best == "" {
		return "", false
	}

	for _, sub := range r.manifest.Paths[best] {
		target := strings.Replace(sub, "*", captured, 1)
		if !filepath.IsAbs(target) {
			target = filepath.Join(r.manifest.PathsBase, filepath.FromSlash(target))
		}
		if path, ok := r.probe(target); ok {
			return path, true
		}
	}
	return "", false
}

// lookupNodeModules walks up from fromDir looking for the package, falling
// back to its @types package.
func (r *ModuleResolver) lookupNodeModules(specifier, fromDir string) (string, bool) {
	pkgName, subpath := splitPackage(specifier)
	if pkgName == "" {
		return "", false
	}

	for dir := fromDir; ; {
		nm := filepath.Join(dir, "node_modules")
		for _, name := range []string{pkgName, typesPackage(pkgName)} {
			pkgDir := filepath.Join(nm, filepath.FromSlash(name))
			if !isDir(pkgDir) {
				continue
			}
			if path, ok := r.resolvePackage(pkgDir, subpath); ok {
				return path, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}

func (r *ModuleResolver) resolvePackage(pkgDir, subpath string) (string, bool) {
	if subpath != "" {
		return r.probe(filepath.Join(pkgDir, filepath.FromSlash(subpath)))
	}

	if pkg := r.loadPackageJSON(pkgDir); pkg != nil {
		for _, entry := range pkg.entries() {
			if path, ok := r.probe(filepath.Join(pkgDir, filepath.FromSlash(entry))); ok {
				return path, true
			}
		}
	}
	return r.probeIndex(pkgDir)
}

// probe tries base as a file, with each extension appended, with a .js
// family extension swapped for its TypeScript source, and as a directory
// with an index file.
func (r *ModuleResolver) probe(base string) (string, bool) {
	if isFile(base) {
		return base, true
	}
	for _, ext := range probeExtensions {
		if isFile(base + ext) {
			return base + ext, true
		}
	}
	if path, ok := probeSwappedExtension(base); ok {
		return path, true
	}
	if isDir(base) {
		if pkg := r.loadPackageJSON(base); pkg != nil {
			for _, entry := range pkg.entries() {
				candidate := filepath.Join(base, filepath.FromSlash(entry))
				if isFile(candidate) {
					return candidate, true
				}
			}
		}
		return r.probeIndex(base)
	}
	return "", false
}

func (r *ModuleResolver) probeIndex(dir string) (string, bool) {
	for _, ext := range probeExtensions {
		candidate := filepath.Join(dir, "index"+ext)
		if isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// probeSwappedExtension maps "./Button.js" to Button.tsx or Button.ts.
func probeSwappedExtension(base string) (string, bool) {
	swaps := map[string][]string{
		".js":  {".tsx", ".ts"},
		".jsx": {".tsx"},
		".mjs": {".mts"},
		".cjs": {".cts"},
	}
	ext := filepath.Ext(base)
	for _, to := range swaps[ext] {
		candidate := strings.TrimSuffix(base, ext) + to
		if isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

type packageJSON struct {
	Main    string `json:"main"`
	Module  string `json:"module"`
	Types   string `json:"types"`
	Typings string `json:"typings"`
	Exports any    `json:"exports"`
}

// entries lists candidate entry files in priority order.
func (p *packageJSON) entries() []string {
	var out []string
	if entry := exportsEntry(p.Exports); entry != "" {
		out = append(out, entry)
	}
	for _, e := range []string{p.Types, p.Typings, p.Module, p.Main} {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// exportsEntry reads exports["."], following condition objects in the
// order types, import, module, default, require.
func exportsEntry(exports any) string {
	switch v := exports.(type) {
	case string:
		return v
	case map[string]any:
		if dot, ok := v["."]; ok {
			return exportsEntry(dot)
		}
		for _, cond := range []string{"types", "import", "module", "default", "require"} {
			if next, ok := v[cond]; ok {
				if entry := exportsEntry(next); entry != "" {
					return entry
				}
			}
		}
	case []any:
		for _, item := range v {
			if entry := exportsEntry(item); entry != "" {
				return entry
			}
		}
	}
	return ""
}

func (r *ModuleResolver) loadPackageJSON(dir string) *packageJSON {
	if pkg, ok := r.packages.Get(dir); ok {
		return pkg
	}

	var pkg *packageJSON
	if data, err := os.ReadFile(filepath.Join(dir, "package.json")); err == nil {
		var decoded packageJSON
		if err := json.Unmarshal(data, &decoded); err == nil {
			pkg = &decoded
		} else {
			r.logger.Debug("invalid package.json", "dir", dir, "error", err)
		}
	}

	// Negative results are cached too.
	r.packages.Add(dir, pkg)
	return pkg
}

// splitPackage splits "@scope/pkg/sub/path" into ("@scope/pkg", "sub/path").
func splitPackage(specifier string) (name, subpath string) {
	parts := strings.Split(specifier, "/")
	n := 1
	if strings.HasPrefix(specifier, "@") {
		if len(parts) < 2 {
			return "", ""
		}
		n = 2
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/")
}

// typesPackage maps "react" to "@types/react" and "@scope/pkg" to
// "@types/scope__pkg".
func typesPackage(name string) string {
	if strings.HasPrefix(name, "@") {
		return "@types/" + strings.Replace(strings.TrimPrefix(name, "@"), "/", "__", 1)
	}
	return "@types/" + name
}

func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
