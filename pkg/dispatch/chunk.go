package dispatch

// MaxChunkSize caps the number of paths in one request.
const MaxChunkSize = 250

// ChunkSize spreads total files evenly over workers, capped at maxChunk
// (MaxChunkSize when maxChunk < 1) and never below 1.
func ChunkSize(total, workers, maxChunk int) int {
	if workers < 1 {
		workers = 1
	}
	if maxChunk < 1 {
		maxChunk = MaxChunkSize
	}
	size := (total + workers - 1) / workers
	if size > maxChunk {
		size = maxChunk
	}
	if size < 1 {
		size = 1
	}
	return size
}

// Source hands out chunks to the coordinator. It is only called from the
// coordinator's goroutine.
type Source interface {
	// Next returns the next chunk, or an empty chunk when nothing is ready.
	Next() []string
	// Growing reports whether handling replies may produce more paths.
	// A growing source's idle workers wait instead of disconnecting while
	// other chunks are in flight.
	Growing() bool
	// Total is the number of paths known so far.
	Total() int
}

// Cursor walks a fixed path list in equal chunks.
type Cursor struct {
	paths []string
	size  int
	pos   int
}

// NewCursor splits paths for workers, with chunks no larger than maxChunk.
func NewCursor(paths []string, workers, maxChunk int) *Cursor {
	return &Cursor{
		paths: paths,
		size:  ChunkSize(len(paths), workers, maxChunk),
	}
}

func (c *Cursor) Next() []string {
	if c.pos >= len(c.paths) {
		return nil
	}
	end := min(c.pos+c.size, len(c.paths))
	chunk := c.paths[c.pos:end:end]
	c.pos = end
	return chunk
}

func (c *Cursor) Growing() bool { return false }

func (c *Cursor) Total() int { return len(c.paths) }
