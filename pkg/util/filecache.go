// SourceCache provides file access through memory-mapped files.
//
// Scans read every source file once per pass, so a mapping only lives
// while someone holds it: Acquire maps a file lazily and counts the holder,
// Release drops the count and unmaps after the last holder is done.
// Invalidate detaches a path so the next Acquire re-reads it from disk;
// holders of the old mapping keep it until they release it.
//
// Mapping falls back to os.ReadFile when mmap fails (special files, some
// network filesystems).
package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"
)

// SourceCacheConfig controls SourceCache behavior.
type SourceCacheConfig struct {
	// MaxFiles is the maximum number of files mapped at once.
	// Set to 0 for unlimited.
	MaxFiles int

	// Logger for mmap fallbacks. If nil, uses slog.Default().
	Logger *slog.Logger
}

// DefaultSourceCacheConfig returns defaults suitable for a scan worker.
func DefaultSourceCacheConfig() *SourceCacheConfig {
	return &SourceCacheConfig{
		MaxFiles: 4096,
	}
}

// MappedFile is a held view of one source file.
type MappedFile struct {
	Path string

	// Data is the mapped region, nil for empty files. It is only valid
	// until the holder releases the file.
	Data mmap.MMap

	Size     int64
	MappedAt time.Time

	// fallback is true when Data is a heap copy rather than a mapping.
	fallback bool
	// refs counts holders; guarded by SourceCache.mu.
	refs int
}

// SourceCacheStats tracks cache activity.
type SourceCacheStats struct {
	FilesLoaded  int64
	FilesMapped  int
	CacheHits    int64
	MmapFailures int64
}

// SourceCache maps source files on demand. It is safe for concurrent use.
type SourceCache struct {
	config *SourceCacheConfig
	logger *slog.Logger

	mu       sync.Mutex
	files    map[string]*MappedFile
	detached int
	stats    SourceCacheStats
}

// NewSourceCache creates a SourceCache. A nil config uses the defaults.
func NewSourceCache(config *SourceCacheConfig) *SourceCache {
	if config == nil {
		config = DefaultSourceCacheConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SourceCache{
		config: config,
		logger: logger,
		files:  make(map[string]*MappedFile),
	}
}

// Acquire returns the file's contents, mapping it if no one holds it yet.
// Every successful Acquire must be paired with a Release of the returned
// file.
func (c *SourceCache) Acquire(filePath string) (*MappedFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mf, ok := c.files[filePath]; ok {
		mf.refs++
		c.stats.CacheHits++
		return mf, nil
	}

	if limit := c.config.MaxFiles; limit > 0 && len(c.files)+c.detached >= limit {
		return nil, fmt.Errorf("source cache limit reached: %d files mapped (limit: %d)",
			len(c.files)+c.detached, limit)
	}

	mf, err := c.load(filePath)
	if err != nil {
		return nil, err
	}
	mf.refs = 1
	c.files[filePath] = mf
	c.stats.FilesLoaded++
	return mf, nil
}

// Release drops one hold on mf and unmaps it when no holder is left.
func (c *SourceCache) Release(mf *MappedFile) {
	if mf == nil {
		return
	}

	c.mu.Lock()
	if mf.refs == 0 {
		c.mu.Unlock()
		return
	}
	mf.refs--
	if mf.refs > 0 {
		c.mu.Unlock()
		return
	}
	if c.files[mf.Path] == mf {
		delete(c.files, mf.Path)
	} else {
		c.detached--
	}
	c.mu.Unlock()

	c.unmap(mf)
}

// Invalidate makes the next Acquire of filePath read it from disk again.
// Current holders keep their mapping until they release it.
func (c *SourceCache) Invalidate(filePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.files[filePath]; ok {
		delete(c.files, filePath)
		c.detached++
	}
}

// Stats returns a snapshot of cache counters.
func (c *SourceCache) Stats() SourceCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.FilesMapped = len(c.files) + c.detached
	return stats
}

// Close unmaps every file that is not detached. It must not be called
// while files are held.
func (c *SourceCache) Close() error {
	c.mu.Lock()
	files := c.files
	c.files = make(map[string]*MappedFile)
	c.mu.Unlock()

	var firstErr error
	for _, mf := range files {
		if err := c.unmap(mf); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// load maps a file, falling back to a heap read when mmap fails.
// The descriptor is closed right away; the mapping outlives it.
func (c *SourceCache) load(filePath string) (*MappedFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %q: %w", filePath, err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%q is a directory", filePath)
	}

	// Can't mmap zero bytes
	if stat.Size() == 0 {
		return &MappedFile{Path: filePath, MappedAt: time.Now()}, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		c.logger.Warn("mmap failed, using fallback",
			"file", filePath,
			"size", stat.Size(),
			"error", err)
		c.stats.MmapFailures++

		buf, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("mmap failed and fallback failed for %q: mmap error: %v, read error: %w",
				filePath, err, readErr)
		}
		return &MappedFile{
			Path:     filePath,
			Data:     mmap.MMap(buf),
			Size:     int64(len(buf)),
			MappedAt: time.Now(),
			fallback: true,
		}, nil
	}

	return &MappedFile{
		Path:     filePath,
		Data:     data,
		Size:     stat.Size(),
		MappedAt: time.Now(),
	}, nil
}

func (c *SourceCache) unmap(mf *MappedFile) error {
	if mf.fallback || mf.Data == nil {
		return nil
	}
	if err := mf.Data.Unmap(); err != nil {
		c.logger.Warn("failed to unmap file", "file", mf.Path, "error", err)
		return fmt.Errorf("unmap %q: %w", mf.Path, err)
	}
	return nil
}
