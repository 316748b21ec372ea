package crawler

import (
	"github.com/gnana997/jsxusage/pkg/dispatch"
)

// State is where a path is in the crawl.
type State int

const (
	Pending State = iota
	InFlight
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case InFlight:
		return "in-flight"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Worklist is the entry-point crawl state: every path ever seen and a queue
// of the pending ones. A path is queued at most once; membership in the
// visited set gates insertion, so finished paths are never queued again.
//
// It implements dispatch.Source and is only touched by the coordinator.
type Worklist struct {
	states   map[string]State
	queue    []string
	workers  int
	maxChunk int

	inFlight int
	done     int
}

var _ dispatch.Source = (*Worklist)(nil)

// NewWorklist returns an empty worklist whose chunks are sized for workers.
func NewWorklist(workers, maxChunk int) *Worklist {
	return &Worklist{
		states:   make(map[string]State),
		workers:  workers,
		maxChunk: maxChunk,
	}
}

// Add queues path unless it was seen before. It reports whether path was
// queued.
func (w *Worklist) Add(path string) bool {
	if _, seen := w.states[path]; seen {
		return false
	}
	w.states[path] = Pending
	w.queue = append(w.queue, path)
	return true
}

// Next moves a chunk of pending paths in flight. The chunk is sized from
// what is pending right now.
func (w *Worklist) Next() []string {
	if len(w.queue) == 0 {
		return nil
	}

	size := dispatch.ChunkSize(len(w.queue), w.workers, w.maxChunk)
	chunk := make([]string, size)
	copy(chunk, w.queue)
	w.queue = w.queue[size:]

	for _, p := range chunk {
		w.states[p] = InFlight
	}
	w.inFlight += len(chunk)
	return chunk
}

// Complete marks in-flight paths done. Unknown or already finished paths
// are ignored.
func (w *Worklist) Complete(paths []string) {
	for _, p := range paths {
		if w.states[p] != InFlight {
			continue
		}
		w.states[p] = Done
		w.inFlight--
		w.done++
	}
}

// Growing is always true: handled replies may queue more paths.
func (w *Worklist) Growing() bool { return true }

// Total is the number of paths seen so far.
func (w *Worklist) Total() int { return len(w.states) }

// State returns path's state and whether it was ever added.
func (w *Worklist) State(path string) (State, bool) {
	s, ok := w.states[path]
	return s, ok
}

func (w *Worklist) Pending() int  { return len(w.queue) }
func (w *Worklist) InFlight() int { return w.inFlight }
func (w *Worklist) Done() int     { return w.done }

// Settled reports whether nothing is pending or in flight.
func (w *Worklist) Settled() bool {
	return len(w.queue) == 0 && w.inFlight == 0
}
